// Package probe classifies raw CSV cells and infers column types from a
// sample of rows.
package probe

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ColumnType is the inferred type of a parsed column.
type ColumnType string

const (
	ColumnString  ColumnType = "string"
	ColumnNumber  ColumnType = "number"
	ColumnBoolean ColumnType = "boolean"
	ColumnDate    ColumnType = "date"
	ColumnUnknown ColumnType = "unknown"
)

// Coerce converts a raw CSV cell into a typed value:
//   - empty or whitespace-only → nil
//   - numeric literal → float64
//   - "true"/"false" in any case → bool
//   - anything else → the raw string, untouched
func Coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if f, ok := parseNumber(s); ok {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// Stringify renders a coerced cell the way downstream stages see it:
// numbers in shortest round-trip form, booleans as true/false and nil as "".
func Stringify(v any) string {
	return cast.ToString(v)
}

// parseNumber accepts plain decimal and scientific notation. Hex, Inf, NaN
// and Go digit separators are rejected even though strconv understands them.
func parseNumber(s string) (float64, bool) {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// IsNumber reports whether s is a numeric literal.
func IsNumber(s string) bool {
	_, ok := parseNumber(strings.TrimSpace(s))
	return ok
}

// ParseNumber parses a numeric literal.
func ParseNumber(s string) (float64, bool) {
	return parseNumber(strings.TrimSpace(s))
}

// default truthy/falsy sets (lowercased).
var (
	truthy = map[string]struct{}{
		"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}, "on": {},
	}
	falsy = map[string]struct{}{
		"0": {}, "f": {}, "false": {}, "no": {}, "n": {}, "off": {},
	}
)

// ParseBool accepts common textual booleans and 1/0.
func ParseBool(s string) (value bool, ok bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	if _, yes := truthy[k]; yes {
		return true, true
	}
	if _, no := falsy[k]; no {
		return false, true
	}
	return false, false
}

// dateLayouts are common date formats without a time component.
var dateLayouts = []string{
	"2006-01-02",      // ISO
	"02.01.2006",      // DMY dot
	"01/02/2006",      // MDY slash
	"02/01/2006",      // DMY slash
	"2 Jan 2006",      // DMY textual
	"02-Jan-2006",     // DMY dash textual month
	"Jan 2, 2006",     // US textual
	"January 2, 2006", // US long textual
	"2006/01/02",      // ISO slashy
	"1/2/2006",        // MDY without padding
}

// timestampLayouts are common timestamp formats (with time component).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05 -0700",
}

// ParseDate tries the timestamp layouts first, then the date layouts.
func ParseDate(s string) (time.Time, bool) {
	st := strings.TrimSpace(s)
	if st == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, st); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, st); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsDate reports whether s parses with one of the known layouts.
func IsDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}
