// Package validator checks a proposed column mapping against the target
// schema: required-field coverage, enum values in the sample and mapping
// confidence. It also suggests defaults for required fields that have no
// source column.
package validator

import (
	"fmt"
	"strings"

	"dataimport/internal/mapper"
	"dataimport/internal/schema"
	"dataimport/pkg/records"
)

// LowConfidenceThreshold is the confidence under which a mapping of a
// required field draws a warning. It is deliberately stricter than
// mapper.AcceptanceThreshold.
const LowConfidenceThreshold = 0.8

// Result is the outcome of ValidateData.
type Result struct {
	IsValid               bool           `json:"isValid"`
	Errors                []Issue        `json:"errors"`
	Warnings              []Issue        `json:"warnings"`
	MissingRequiredFields []string       `json:"missingRequiredFields"`
	SuggestedDefaults     map[string]any `json:"suggestedDefaults"`
}

// ValidateData validates mappings for entity. The mappings are usually the
// mapper's output but may have been edited by a human. sampleRows is
// optional; only its first row is inspected.
func ValidateData(entity string, mappings []mapper.FieldMapping, sampleRows []records.Sample) Result {
	s, _ := schema.Lookup(entity)

	var issues []Issue
	missing := []string{}

	// 1. Required-field coverage.
	for _, f := range s.Required() {
		if !covered(mappings, f.Name) {
			missing = append(missing, f.Name)
			issues = append(issues, Issue{
				Field:    f.Name,
				Message:  fmt.Sprintf("field %s is not mapped", f.Name),
				Severity: SeverityError,
			})
		}
	}

	// 2. Enum spot-check against the first sample row.
	if len(sampleRows) > 0 {
		first := sampleRows[0]
		for _, m := range mappings {
			f, ok := s.Field(m.SchemaField)
			if !ok {
				continue
			}
			switch k := f.Kind.(type) {
			case schema.Enum:
				v := first[m.CSVColumn]
				if v == "" || k.Has(v) {
					continue
				}
				issues = append(issues, Issue{
					Field: f.Name,
					Message: fmt.Sprintf("value %q in column %q is not a valid %s; valid options: %s",
						v, m.CSVColumn, f.Name, strings.Join(k.Options, ", ")),
					Severity: SeverityWarning,
				})
			case schema.Scalar:
			}
		}
	}

	// 3. Required fields mapped with low confidence.
	for _, m := range mappings {
		if m.IsRequired && m.Confidence < LowConfidenceThreshold {
			issues = append(issues, Issue{
				Field: m.SchemaField,
				Message: fmt.Sprintf("required field %s is mapped from %q with low confidence (%.2f); please confirm",
					m.SchemaField, m.CSVColumn, m.Confidence),
				Severity: SeverityWarning,
			})
		}
	}

	// 4. Suggested defaults for whatever is still missing.
	defaults := schema.DefaultsFor(entity)
	suggested := make(map[string]any, len(missing))
	for _, name := range missing {
		if v, ok := defaults[name]; ok {
			suggested[name] = v
		}
	}

	errs, warns := partition(issues)
	return Result{
		IsValid:               len(missing) == 0 && len(errs) == 0,
		Errors:                errs,
		Warnings:              warns,
		MissingRequiredFields: missing,
		SuggestedDefaults:     suggested,
	}
}

// covered reports whether some mapping targets field with an acceptable
// confidence.
func covered(mappings []mapper.FieldMapping, field string) bool {
	for _, m := range mappings {
		if m.SchemaField == field && m.Confidence >= mapper.AcceptanceThreshold {
			return true
		}
	}
	return false
}
