// Package mapper proposes a mapping from arbitrary CSV headers onto the
// fields of a target entity schema. Every proposal carries a confidence in
// [0,1]; headers without a good enough candidate are left unmapped for a
// human to resolve.
package mapper

import (
	"dataimport/internal/schema"
	"dataimport/pkg/records"
)

// AcceptanceThreshold is the minimum confidence for a header to be mapped.
const AcceptanceThreshold = 0.7

// FieldMapping binds one CSV column to one schema field.
type FieldMapping struct {
	CSVColumn   string           `json:"csvColumn"`
	SchemaField string           `json:"schemaField"`
	Confidence  float64          `json:"confidence"`
	DataType    schema.FieldType `json:"dataType"`
	IsRequired  bool             `json:"isRequired"`
	SampleValue *string          `json:"sampleValue,omitempty"`
}

// MappingResult is the outcome of MapSchema.
type MappingResult struct {
	Mappings              []FieldMapping `json:"mappings"`
	UnmappedColumns       []string       `json:"unmappedColumns"`
	MissingRequiredFields []string       `json:"missingRequiredFields"`

	// Suggestions lists, per unmapped column, schema fields that look
	// similar. They are hints for a human and are never applied.
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

// Mapper scores headers with an ordered strategy list.
type Mapper struct {
	Strategies []Strategy
	Threshold  float64
}

// New returns a Mapper using DefaultStrategies and AcceptanceThreshold.
func New() *Mapper {
	return &Mapper{Strategies: DefaultStrategies, Threshold: AcceptanceThreshold}
}

// MapSchema maps headers onto the schema of entity with the default mapper.
func MapSchema(entity string, headers []string, sampleRows []records.Sample) MappingResult {
	return New().Map(entity, headers, sampleRows)
}

// Map proposes mappings for headers, in header order.
//
// Each header takes the highest scoring field that no earlier header has
// claimed; ties go to the field declared first. A header whose best score is
// under the threshold is reported unmapped. Unknown entities have no fields,
// so every header ends up unmapped and nothing is reported missing.
func (m *Mapper) Map(entity string, headers []string, sampleRows []records.Sample) MappingResult {
	s, _ := schema.Lookup(entity)

	res := MappingResult{
		Mappings:              []FieldMapping{},
		UnmappedColumns:       []string{},
		MissingRequiredFields: []string{},
	}
	claimed := make(map[string]bool, len(s.Fields))

	for _, h := range headers {
		nh := NormalizeHeader(h)

		best := -1
		bestScore := 0.0
		for i, f := range s.Fields {
			if claimed[f.Name] {
				continue
			}
			if sc, _ := Score(m.Strategies, nh, f); sc > bestScore {
				best, bestScore = i, sc
			}
		}
		if best < 0 || bestScore < m.Threshold {
			res.UnmappedColumns = append(res.UnmappedColumns, h)
			continue
		}

		f := s.Fields[best]
		claimed[f.Name] = true
		fm := FieldMapping{
			CSVColumn:   h,
			SchemaField: f.Name,
			Confidence:  bestScore,
			DataType:    f.Type,
			IsRequired:  f.Required,
		}
		if len(sampleRows) > 0 {
			if v, ok := sampleRows[0][h]; ok {
				fm.SampleValue = &v
			}
		}
		res.Mappings = append(res.Mappings, fm)
	}

	for _, f := range s.Required() {
		if !claimed[f.Name] {
			res.MissingRequiredFields = append(res.MissingRequiredFields, f.Name)
		}
	}

	res.Suggestions = suggest(s, res.UnmappedColumns, claimed)
	return res
}
