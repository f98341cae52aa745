// Package transformer coerces raw rows into schema-conformant records.
//
// Transform is the per-row counterpart of the old batch transform chain: it
// walks a row against the stream's declared schema and metadata, coercing
// string cells to typed values and rejecting the row on the first violation.
// There is no repair or skip mode; a malformed row fails the whole file, and
// the caller is expected to let that propagate.
package transformer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"s3tap/internal/records"
	"s3tap/internal/schema"
)

// dateTimeLayouts are tried in order when coercing "date-time" strings.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Transform validates and coerces rec against sch and md.
//
// Behavior:
//   - Fields not declared in the schema are dropped.
//   - Declared fields are kept according to md.Selected; automatic fields
//     are always kept.
//   - Cell values are coerced to the declared type; nil is allowed only for
//     nullable fields.
//
// The input record is not mutated. The first violation returns a non-nil
// error describing the field and offending value.
func Transform(rec records.Record, sch *schema.Schema, md schema.Metadata) (records.Record, error) {
	if sch == nil {
		return nil, fmt.Errorf("transform: schema is required")
	}

	out := make(records.Record, len(sch.Properties))

	// Deterministic field order so the first error is stable across runs.
	names := make([]string, 0, len(sch.Properties))
	for name := range sch.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fieldSchema := sch.Properties[name]
		v, present := rec[name]
		if !present {
			continue
		}
		if !md.Selected(name) {
			continue
		}
		cv, err := coerce(v, fieldSchema)
		if err != nil {
			return nil, fmt.Errorf("transform: field %q: %w", name, err)
		}
		out[name] = cv
	}

	return out, nil
}

// coerce converts v to the type declared by s.
func coerce(v any, s *schema.Schema) (any, error) {
	if s == nil || len(s.Type) == 0 {
		return v, nil
	}
	if v == nil {
		if s.Type.Nullable() {
			return nil, nil
		}
		return nil, fmt.Errorf("null value not allowed for type %v", []string(s.Type))
	}

	switch s.Type.Primary() {
	case "integer":
		return coerceInteger(v)
	case "number":
		return coerceNumber(v)
	case "boolean":
		return coerceBoolean(v)
	case "string", "":
		if s.Format == "date-time" {
			return coerceDateTime(v)
		}
		return coerceString(v), nil
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			if r, isRec := v.(records.Record); isRec {
				m = map[string]any(r)
			} else {
				return nil, fmt.Errorf("cannot coerce %T to object", v)
			}
		}
		out := make(map[string]any, len(m))
		for k, e := range m {
			ce, err := coerce(e, s.Properties[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = ce
		}
		return out, nil
	case "array":
		l, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %T to array", v)
		}
		out := make([]any, len(l))
		for i, e := range l {
			ce, err := coerce(e, s.Items)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ce
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported schema type %q", s.Type.Primary())
	}
}

func coerceInteger(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("cannot coerce %v to integer", t)
		}
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to integer", t)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to integer", v)
	}
}

func coerceNumber(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to number", t)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to number", v)
	}
}

func coerceBoolean(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to boolean", t)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to boolean", v)
	}
}

func coerceDateTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateTimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, fmt.Errorf("cannot coerce %q to date-time", t)
	default:
		return nil, fmt.Errorf("cannot coerce %T to date-time", v)
	}
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
