package probe

import "testing"

func TestSniffDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"semicolon", "Firma;Status;Umsatz\nAcme;lead;1,5\n", ';'},
		{"tab", "a\tb\tc\n", '\t'},
		{"pipe", "a|b\n", '|'},
		{"quoted commas ignored", "\"Name, full\";\"Status\"\n", ';'},
		{"leading blank lines", "\n\r\n  \na;b\n", ';'},
		{"single column", "Company\nAcme\n", ','},
		{"tie prefers comma", "a,b;c\n", ','},
		{"empty", "", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffDelimiter(tt.in); got != tt.want {
				t.Fatalf("SniffDelimiter(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeDelimiter(t *testing.T) {
	t.Parallel()

	cases := map[string]rune{"": ',', ";": ';', `\t`: '\t', "TAB": '\t', "|x": '|', "\xff": ','}
	for in, want := range cases {
		if got := DecodeDelimiter(in); got != want {
			t.Errorf("DecodeDelimiter(%q) = %q; want %q", in, got, want)
		}
	}
}
