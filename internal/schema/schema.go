// Package schema models the declared shape of one table's output records: a
// small JSON-schema subset for field types plus the metadata annotations
// (key properties, field selection) that accompany a stream.
package schema

import (
	"encoding/json"
	"fmt"
)

// Schema is the JSON-schema subset understood by the transformer.
//
// Type holds one or more of "null", "string", "integer", "number",
// "boolean", "object", "array". A scalar JSON type ("string") and a list
// (["null","string"]) both decode into the slice form.
type Schema struct {
	Type       TypeList           `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"` // "date-time" on strings
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

// TypeList accepts both `"string"` and `["null","string"]` JSON forms.
type TypeList []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TypeList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = TypeList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("schema type: expected string or list of strings: %w", err)
	}
	*t = TypeList(many)
	return nil
}

// MarshalJSON emits the scalar form for single-type lists.
func (t TypeList) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Has reports whether typ is one of the declared types.
func (t TypeList) Has(typ string) bool {
	for _, s := range t {
		if s == typ {
			return true
		}
	}
	return false
}

// Nullable reports whether "null" is an allowed type.
func (t TypeList) Nullable() bool { return t.Has("null") }

// Primary returns the first non-"null" type, or "" when none is declared.
func (t TypeList) Primary() string {
	for _, s := range t {
		if s != "null" {
			return s
		}
	}
	return ""
}
