package schema

// Stream pairs a table's schema with its metadata annotations. It is
// immutable for the duration of a sync.
type Stream struct {
	TableName string          `json:"table_name"`
	Schema    *Schema         `json:"schema"`
	Metadata  []MetadataEntry `json:"metadata,omitempty"`
}

// MetadataEntry annotates one breadcrumb in the stream: the empty breadcrumb
// for table-level metadata, or ["properties", <field>] for a single field.
type MetadataEntry struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// Inclusion values used in field metadata.
const (
	InclusionAutomatic   = "automatic"
	InclusionAvailable   = "available"
	InclusionUnsupported = "unsupported"
)

// Metadata is the flattened lookup form of a stream's metadata entries,
// keyed by field name. The table-level entry lives under the empty key.
type Metadata map[string]map[string]any

// ToMap flattens entries for O(1) per-field lookup during transformation.
// Field-level breadcrumbs are expected as ["properties", <field>]; other
// shapes are ignored.
func ToMap(entries []MetadataEntry) Metadata {
	m := make(Metadata, len(entries))
	for _, e := range entries {
		switch len(e.Breadcrumb) {
		case 0:
			m[""] = e.Metadata
		case 2:
			if e.Breadcrumb[0] == "properties" {
				m[e.Breadcrumb[1]] = e.Metadata
			}
		}
	}
	return m
}

// KeyProperties returns the table-key-properties list from the table-level
// entry, if any.
func (m Metadata) KeyProperties() []string {
	tbl, ok := m[""]
	if !ok {
		return nil
	}
	switch v := tbl["table-key-properties"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Selected reports whether the named field should be emitted. Fields with
// automatic inclusion are always selected; unsupported fields never are.
// Fields without metadata default to selected.
func (m Metadata) Selected(field string) bool {
	fm, ok := m[field]
	if !ok {
		return true
	}
	switch fm["inclusion"] {
	case InclusionAutomatic:
		return true
	case InclusionUnsupported:
		return false
	}
	if sel, ok := fm["selected"].(bool); ok {
		return sel
	}
	return true
}
