// Package records holds the row type shared by the import stages.
package records

// Record is one row keyed by column header (parsed table) or by schema
// field name (built record set).
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Sample is a string-coerced row. The mapper and validator only ever see
// sample rows in this form.
type Sample map[string]string

// Row is one parsed data row: the raw cell text and the coerced values,
// both keyed by header, plus the 1-based input line it started on.
type Row struct {
	Line   int
	Raw    Sample
	Values Record
}
