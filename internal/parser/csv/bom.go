package csv

import (
	"fmt"
	"strings"
)

// normalizeHeaders trims header cells, strips a leading BOM, names empty
// cells after their position and disambiguates duplicates with a numeric
// suffix (Email, Email_1, ...). Every rename is reported as a warning.
func normalizeHeaders(raw []string, line int) ([]string, []ParseWarning) {
	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	var warnings []ParseWarning

	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
			warnings = append(warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("empty header in column %d renamed to %q", i+1, h),
			})
		}
		if _, dup := seen[h]; dup {
			base := h
			for n := 1; ; n++ {
				h = fmt.Sprintf("%s_%d", base, n)
				if _, taken := seen[h]; !taken {
					break
				}
			}
			warnings = append(warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("duplicate header %q renamed to %q", base, h),
			})
		}
		seen[h] = struct{}{}
		out[i] = h
	}
	return out, warnings
}
