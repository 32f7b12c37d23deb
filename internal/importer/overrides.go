package importer

import (
	"fmt"
	"slices"
	"sort"

	"dataimport/internal/mapper"
	"dataimport/internal/schema"
	"dataimport/pkg/records"
)

// ApplyOverrides edits a proposed mapping with human choices, keyed by CSV
// column. A non-empty value binds the column to that field with confidence
// 1.0 and releases any other column that held the field. An empty value
// leaves the column unmapped. Missing required fields are recomputed.
//
// The input result is not modified.
func ApplyOverrides(entity string, res mapper.MappingResult, headers []string, samples []records.Sample, overrides map[string]string) (mapper.MappingResult, error) {
	s, ok := schema.Lookup(entity)
	if !ok {
		return mapper.MappingResult{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if len(overrides) == 0 {
		return res, nil
	}

	cols := make([]string, 0, len(overrides))
	for c := range overrides {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		if !slices.Contains(headers, c) {
			return mapper.MappingResult{}, fmt.Errorf("%w: column %q is not in the file", ErrInvalidMapping, c)
		}
		if f := overrides[c]; f != "" {
			if _, ok := s.Field(f); !ok {
				return mapper.MappingResult{}, fmt.Errorf("%w: column %q: unknown field %q", ErrInvalidMapping, c, f)
			}
		}
	}

	// Current binding per column, then apply overrides in column order.
	bound := make(map[string]mapper.FieldMapping, len(res.Mappings))
	for _, m := range res.Mappings {
		bound[m.CSVColumn] = m
	}
	for _, c := range cols {
		field := overrides[c]
		delete(bound, c)
		if field == "" {
			continue
		}
		for other, m := range bound {
			if m.SchemaField == field {
				delete(bound, other)
			}
		}
		f, _ := s.Field(field)
		fm := mapper.FieldMapping{
			CSVColumn:   c,
			SchemaField: f.Name,
			Confidence:  1.0,
			DataType:    f.Type,
			IsRequired:  f.Required,
		}
		if len(samples) > 0 {
			v := samples[0][c]
			fm.SampleValue = &v
		}
		bound[c] = fm
	}

	out := mapper.MappingResult{
		Mappings:              []mapper.FieldMapping{},
		UnmappedColumns:       []string{},
		MissingRequiredFields: []string{},
	}
	covered := map[string]bool{}
	for _, h := range headers {
		m, ok := bound[h]
		if !ok {
			out.UnmappedColumns = append(out.UnmappedColumns, h)
			if sg, ok := res.Suggestions[h]; ok {
				if out.Suggestions == nil {
					out.Suggestions = map[string][]string{}
				}
				out.Suggestions[h] = sg
			}
			continue
		}
		out.Mappings = append(out.Mappings, m)
		if m.Confidence >= mapper.AcceptanceThreshold {
			covered[m.SchemaField] = true
		}
	}
	for _, f := range s.Required() {
		if !covered[f.Name] {
			out.MissingRequiredFields = append(out.MissingRequiredFields, f.Name)
		}
	}
	return out, nil
}
