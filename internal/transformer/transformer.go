// Package transformer applies an accepted column mapping to every parsed row
// and produces the schema-conformant record set: values coerced to their
// field types, defaults filled in, bad rows rejected and exact duplicates
// dropped.
package transformer

import (
	"fmt"

	"dataimport/internal/mapper"
	"dataimport/internal/schema"
	"dataimport/pkg/records"
)

// RejectedRow is a source row that could not be turned into a record.
type RejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// BuildResult is the outcome of Build.
type BuildResult struct {
	Records    []records.Record `json:"records"`
	Rejected   []RejectedRow    `json:"rejected"`
	Duplicates int              `json:"duplicates"`
}

// Build turns rows into records of entity using mappings. Fields a mapping
// leaves empty are taken from defaults. A row is rejected when a value does
// not coerce to its field type or a required field is still empty.
// Identical records are kept once, first occurrence wins.
func Build(entity string, mappings []mapper.FieldMapping, defaults map[string]any, rows []records.Row) BuildResult {
	s, _ := schema.Lookup(entity)
	plan := planColumns(s, mappings)

	res := BuildResult{Records: []records.Record{}, Rejected: []RejectedRow{}}
	var dd dedup
	for _, row := range rows {
		rec, err := buildRecord(s, plan, defaults, row)
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedRow{Line: row.Line, Reason: err.Error()})
			continue
		}
		if dd.seen(rec) {
			res.Duplicates++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// column binds a source column to the schema field it feeds.
type column struct {
	csv   string
	field schema.Field
}

// planColumns resolves mappings against the schema. Mappings to unknown
// fields are ignored; when two mappings target one field the first wins.
func planColumns(s schema.EntitySchema, mappings []mapper.FieldMapping) []column {
	used := make(map[string]bool, len(mappings))
	plan := make([]column, 0, len(mappings))
	for _, m := range mappings {
		f, ok := s.Field(m.SchemaField)
		if !ok || used[f.Name] {
			continue
		}
		used[f.Name] = true
		plan = append(plan, column{csv: m.CSVColumn, field: f})
	}
	return plan
}

func buildRecord(s schema.EntitySchema, plan []column, defaults map[string]any, row records.Row) (records.Record, error) {
	rec := make(records.Record, len(s.Fields))
	for _, c := range plan {
		v, ok, err := coerceValue(c.field, row.Raw[c.csv])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.csv, err)
		}
		if ok {
			rec[c.field.Name] = v
		}
	}
	for name, v := range defaults {
		if _, set := rec[name]; !set {
			rec[name] = v
		}
	}
	for _, f := range s.Required() {
		if _, set := rec[f.Name]; !set {
			return nil, fmt.Errorf("required field %s is empty", f.Name)
		}
	}
	return rec, nil
}
