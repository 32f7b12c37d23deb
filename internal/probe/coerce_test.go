package probe

import (
	"testing"

	"dataimport/pkg/records"
)

//
// ---- Coerce / Stringify -----------------------------------------------------
//

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"   ", nil},
		{"42", float64(42)},
		{" 3.5 ", 3.5},
		{"-1e3", float64(-1000)},
		{"TRUE", true},
		{"false", false},
		{"yes", "yes"},
		{"Acme", "Acme"},
		{"0x1F", "0x1F"},
		{"Inf", "Inf"},
		{"NaN", "NaN"},
		{"1_000", "1_000"},
		{"-", "-"},
		{"2024-01-15", "2024-01-15"},
	}
	for _, tt := range tests {
		got := Coerce(tt.in)
		if got != tt.want {
			t.Fatalf("Coerce(%q) = %#v; want %#v", tt.in, got, tt.want)
		}
	}
}

/*
Sample values are always handed downstream as strings; numbers lose
insignificant formatting on the way.
*/
func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{float64(7), "7"},
		{2.25, "2.25"},
		{true, "true"},
		{false, "false"},
		{"Acme", "Acme"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Fatalf("Stringify(%#v) = %q; want %q", tt.in, got, tt.want)
		}
	}
	if got := Stringify(Coerce("007")); got != "7" {
		t.Fatalf("Stringify(Coerce(007)) = %q; want 7", got)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "Yes", "y", "TRUE", "on"} {
		if v, ok := ParseBool(s); !ok || !v {
			t.Fatalf("ParseBool(%q) = %v,%v; want true,true", s, v, ok)
		}
	}
	for _, s := range []string{"0", "no", "N", "false", "off"} {
		if v, ok := ParseBool(s); !ok || v {
			t.Fatalf("ParseBool(%q) = %v,%v; want false,true", s, v, ok)
		}
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Fatalf("ParseBool(maybe) accepted")
	}
}

func TestParseDate(t *testing.T) {
	ok := []string{"2024-01-15", "15.01.2024", "01/15/2024", "Jan 5, 2024", "2024-01-15T10:00:00Z", "2024-01-15 10:00:00"}
	for _, s := range ok {
		if !IsDate(s) {
			t.Fatalf("IsDate(%q) = false", s)
		}
	}
	for _, s := range []string{"", "Acme", "2024-13-45", "lead"} {
		if IsDate(s) {
			t.Fatalf("IsDate(%q) = true", s)
		}
	}
	d, _ := ParseDate("15.01.2024")
	if d.Format("2006-01-02") != "2024-01-15" {
		t.Fatalf("ParseDate(15.01.2024) = %v", d)
	}
}

//
// ---- InferColumnType / InferTypes -------------------------------------------
//

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want ColumnType
	}{
		{"first non-empty number", []any{nil, float64(3), "x"}, ColumnNumber},
		{"boolean", []any{true}, ColumnBoolean},
		{"date string", []any{"", "2024-02-01"}, ColumnDate},
		{"plain string", []any{"Acme", float64(1)}, ColumnString},
		{"all empty", []any{nil, "", "  "}, ColumnUnknown},
		{"no values", nil, ColumnUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferColumnType(tt.in); got != tt.want {
				t.Fatalf("InferColumnType(%v) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInferTypes(t *testing.T) {
	headers := []string{"Name", "Revenue", "Active", "Since", "Notes"}
	rows := []records.Record{
		{"Name": "Acme", "Revenue": nil, "Active": true, "Since": "2023-05-01", "Notes": nil},
		{"Name": "Globex", "Revenue": float64(10), "Active": false, "Since": "bad", "Notes": nil},
	}
	got := InferTypes(headers, rows)
	want := map[string]ColumnType{
		"Name":    ColumnString,
		"Revenue": ColumnNumber,
		"Active":  ColumnBoolean,
		"Since":   ColumnDate,
		"Notes":   ColumnUnknown,
	}
	for h, w := range want {
		if got[h] != w {
			t.Fatalf("type[%s] = %q; want %q", h, got[h], w)
		}
	}
}
