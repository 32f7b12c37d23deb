package transformer

import (
	"fmt"
	"strings"

	"dataimport/internal/mapper"
	"dataimport/internal/probe"
	"dataimport/internal/schema"
)

// coerceValue converts raw cell text to the value stored for f. ok is false
// for empty cells, which leave the field unset.
func coerceValue(f schema.Field, raw string) (v any, ok bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false, nil
	}

	switch k := f.Kind.(type) {
	case schema.Enum:
		opt, found := matchOption(k, s)
		if !found {
			return nil, false, fmt.Errorf("%q is not a valid %s (valid: %s)", s, f.Name, strings.Join(k.Options, ", "))
		}
		return opt, true, nil
	case schema.Scalar:
	}

	switch f.Type {
	case schema.TypeNumber:
		n, ok := probe.ParseNumber(stripNumberNoise(s))
		if !ok {
			return nil, false, fmt.Errorf("%q is not a number", s)
		}
		return n, true, nil
	case schema.TypeBoolean:
		b, ok := probe.ParseBool(s)
		if !ok {
			return nil, false, fmt.Errorf("%q is not a boolean", s)
		}
		return b, true, nil
	case schema.TypeDate:
		t, ok := probe.ParseDate(s)
		if !ok {
			return nil, false, fmt.Errorf("%q is not a date", s)
		}
		return t.Format("2006-01-02"), true, nil
	case schema.TypeArray:
		items := splitList(s)
		if len(items) == 0 {
			return nil, false, nil
		}
		return items, true, nil
	default:
		return s, true, nil
	}
}

// matchOption finds v among the enum options: exact first, then by
// normalized form ("On Hold" → "on-hold").
func matchOption(e schema.Enum, v string) (string, bool) {
	if e.Has(v) {
		return v, true
	}
	nv := mapper.NormalizeHeader(v)
	for _, o := range e.Options {
		if mapper.NormalizeHeader(o) == nv {
			return o, true
		}
	}
	return "", false
}

// stripNumberNoise removes currency symbols, thousands separators and
// inner spaces ("$1,200.50" → "1200.50").
func stripNumberNoise(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', ' ':
			return -1
		}
		return r
	}, s)
}

// splitList splits on ';' when present, otherwise on ','. Items are trimmed
// and empty items dropped.
func splitList(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
