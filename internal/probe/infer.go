package probe

import (
	"strings"

	"dataimport/pkg/records"
)

// InferColumnType classifies a column by the first non-empty value in
// values. Values are coerced cells as returned by Coerce.
func InferColumnType(values []any) ColumnType {
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case float64, int, int64:
			return ColumnNumber
		case bool:
			return ColumnBoolean
		case string:
			if strings.TrimSpace(x) == "" {
				continue
			}
			if IsDate(x) {
				return ColumnDate
			}
			return ColumnString
		default:
			return ColumnString
		}
	}
	return ColumnUnknown
}

// InferTypes returns one column type per header based on the sampled rows.
func InferTypes(headers []string, rows []records.Record) map[string]ColumnType {
	out := make(map[string]ColumnType, len(headers))
	col := make([]any, 0, len(rows))
	for _, h := range headers {
		col = col[:0]
		for _, r := range rows {
			col = append(col, r[h])
		}
		out[h] = InferColumnType(col)
	}
	return out
}
