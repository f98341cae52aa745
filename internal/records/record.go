// Package records defines the dynamic record model shared by the parser,
// transformer, and sinks. A Record is one logical row keyed by field name;
// values start life as strings from the CSV layer and are replaced by typed
// values during transformation.
package records

// Record is a single row keyed by canonical field name.
type Record map[string]any

// Copy returns a shallow copy of r. Nested containers are shared; use
// NullifyEmpty for a deep rewrite.
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
