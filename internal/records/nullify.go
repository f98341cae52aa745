package records

import (
	"fmt"
	"strings"
	"unicode"
)

// NullifyEmpty deep-copies v, replacing every scalar that is the empty string
// or consists solely of whitespace with nil. Containers (maps, slices) keep
// their structure and keys; all other scalars pass through unchanged.
//
// Databases emit NULL where CSV sources emit "", so sinks that care about the
// distinction (e.g. warehouse loaders) want blanks collapsed to NULL before
// serialization. Non-string scalars are stringified only for the whitespace
// test; when one qualifies the replacement is nil, never the stringified form.
//
// The input is never mutated, and the function is idempotent.
func NullifyEmpty(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Record:
		out := make(Record, len(t))
		for k, e := range t {
			out[k] = NullifyEmpty(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = NullifyEmpty(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NullifyEmpty(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = NullifyEmpty(e)
		}
		return out
	case string:
		if isBlank(t) {
			return nil
		}
		return t
	default:
		if isBlank(fmt.Sprint(t)) {
			return nil
		}
		return t
	}
}

// isBlank reports whether s is empty or whitespace-only.
func isBlank(s string) bool {
	if s == "" {
		return true
	}
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
