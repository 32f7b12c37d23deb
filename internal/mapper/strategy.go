package mapper

import (
	"strings"

	"dataimport/internal/schema"
)

// Strategy is one scoring rule. Header and field are already normalized.
type Strategy struct {
	Name       string
	Confidence float64
	Match      func(header, field string, f schema.Field) bool
}

// DefaultStrategies is evaluated in order; the first matching strategy
// decides the score of a (header, field) pair.
//
// The company alias rule sits above containment: "name" is contained in
// "companyname" and would otherwise never reach 0.9.
var DefaultStrategies = []Strategy{
	{
		Name:       "exact",
		Confidence: 1.0,
		Match: func(header, field string, _ schema.Field) bool {
			return header == field
		},
	},
	{
		Name:       "company-alias",
		Confidence: 0.9,
		Match: func(header, _ string, f schema.Field) bool {
			return (header == "name" || header == "company") && f.Name == schema.FieldCompanyName
		},
	},
	{
		Name:       "contains",
		Confidence: 0.8,
		Match: func(header, field string, _ schema.Field) bool {
			return strings.Contains(header, field) || strings.Contains(field, header)
		},
	},
	{
		Name:       "client-alias",
		Confidence: 0.7,
		Match: func(header, _ string, f schema.Field) bool {
			return header == "client" && (f.Name == schema.FieldClientID || f.Name == schema.FieldCompanyName)
		},
	},
}

// Score rates a normalized header against field using strategies. It returns
// the confidence and the name of the matching strategy, or 0 and "" when
// nothing matches. Empty headers never match.
func Score(strategies []Strategy, header string, f schema.Field) (float64, string) {
	if header == "" {
		return 0, ""
	}
	field := NormalizeHeader(f.Name)
	for _, s := range strategies {
		if s.Match(header, field, f) {
			return s.Confidence, s.Name
		}
	}
	return 0, ""
}
