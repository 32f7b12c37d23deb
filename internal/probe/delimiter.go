package probe

import (
	"strings"
	"unicode/utf8"
)

// Delimiters are the field separators SniffDelimiter chooses from, in
// tie-break order.
var Delimiters = []rune{',', ';', '\t', '|'}

// DecodeDelimiter converts a user-supplied string into a single rune
// delimiter. Empty or invalid input yields ','.
func DecodeDelimiter(s string) rune {
	switch strings.ToLower(s) {
	case "":
		return ','
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// SniffDelimiter guesses the delimiter from the first non-blank line of
// sample by counting candidates outside double quotes. The most frequent
// candidate wins; ties and lines without any candidate fall back to the
// earlier entry of Delimiters.
func SniffDelimiter(sample string) rune {
	line := firstLine(sample)
	counts := make(map[rune]int, len(Delimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	best, bestN := Delimiters[0], 0
	for _, d := range Delimiters {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

func firstLine(s string) string {
	for len(s) > 0 {
		line := s
		if i := strings.IndexAny(s, "\r\n"); i >= 0 {
			line, s = s[:i], s[i+1:]
		} else {
			s = ""
		}
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
