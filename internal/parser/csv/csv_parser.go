// Package csv turns raw CSV text into a ParsedTable: the header row, a
// string-coerced sample of the first rows, the total row count and an
// inferred type per column. The whole input is held in memory.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataimport/internal/probe"
	"dataimport/pkg/records"
)

// DefaultSampleSize is used when the caller asks for a non-positive sample.
const DefaultSampleSize = 5

// Options configures the parser. All fields are optional.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// DetectComma guesses the delimiter from the header line and overrides
	// Comma.
	DetectComma bool

	// SampleSize is the number of leading rows returned as SampleRows and
	// used for column type inference. Non-positive means DefaultSampleSize.
	SampleSize int

	// TrimSpace trims leading/trailing whitespace from each cell before
	// coercion. Headers are always trimmed.
	TrimSpace bool
}

// ParseWarning is a recoverable oddity found while parsing, tied to a
// 1-based input line.
type ParseWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParsedTable is the structured form of one CSV document.
type ParsedTable struct {
	Headers       []string                    `json:"headers"`
	SampleRows    []records.Sample            `json:"sampleRows"`
	TotalRowCount int                         `json:"totalRowCount"`
	ColumnTypes   map[string]probe.ColumnType `json:"columnTypes"`
	Warnings      []ParseWarning              `json:"warnings,omitempty"`
	Encoding      string                      `json:"encoding,omitempty"`

	// Rows holds every parsed data row.
	Rows []records.Row `json:"-"`
}

// ParseError reports malformed CSV input. It wraps the *csv.ParseError from
// encoding/csv when there is one.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

// Error returns the underlying reader message, which already carries the
// line and column.
func (e *ParseError) Error() string { return "parse csv: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// ErrNoHeader is wrapped by the ParseError returned for input without a
// header row.
var ErrNoHeader = errors.New("empty file: no header row")

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// ParseCSV parses content with default options and the given sample size.
func ParseCSV(content string, sampleSize int) (ParsedTable, error) {
	return Parse(content, Options{SampleSize: sampleSize})
}

// ParseBytes detects the text encoding of data and parses it.
func ParseBytes(data []byte, opt Options) (ParsedTable, error) {
	text, enc, err := DecodeText(data)
	if err != nil {
		return ParsedTable{}, &ParseError{Err: fmt.Errorf("decode input: %w", err)}
	}
	t, err := Parse(text, opt)
	if err != nil {
		return ParsedTable{}, err
	}
	t.Encoding = enc
	return t, nil
}

// Parse reads the whole of content. The first non-blank row supplies the
// headers; blank rows are skipped everywhere. Rows narrower or wider than the
// header are padded or truncated and reported as warnings. Either a complete
// table or an error is returned, never both.
func Parse(content string, opt Options) (ParsedTable, error) {
	sampleSize := opt.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	content = strings.TrimPrefix(content, utf8BOM)
	cr := csv.NewReader(strings.NewReader(content))
	switch {
	case opt.DetectComma:
		cr.Comma = probe.SniffDelimiter(content)
	case opt.Comma != 0:
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1 // width is enforced below, with a warning

	var (
		headers  []string
		rows     []records.Row
		warnings []ParseWarning
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ParsedTable{}, wrapReadError(err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)

		if headers == nil {
			var hw []ParseWarning
			headers, hw = normalizeHeaders(rec, line)
			warnings = append(warnings, hw...)
			continue
		}

		if len(rec) != len(headers) {
			warnings = append(warnings, ParseWarning{
				Line:    line,
				Message: fmt.Sprintf("row has %d fields, header has %d", len(rec), len(headers)),
			})
			rec = fitRowToWidth(rec, len(headers))
		}

		row := records.Row{
			Line:   line,
			Raw:    make(records.Sample, len(headers)),
			Values: make(records.Record, len(headers)),
		}
		for i, h := range headers {
			cell := rec[i]
			if opt.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			row.Raw[h] = cell
			row.Values[h] = probe.Coerce(cell)
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return ParsedTable{}, &ParseError{Err: ErrNoHeader}
	}

	n := min(sampleSize, len(rows))
	sample := make([]records.Sample, 0, n)
	values := make([]records.Record, 0, n)
	for _, r := range rows[:n] {
		s := make(records.Sample, len(r.Values))
		for k, v := range r.Values {
			s[k] = probe.Stringify(v)
		}
		sample = append(sample, s)
		values = append(values, r.Values)
	}

	return ParsedTable{
		Headers:       headers,
		SampleRows:    sample,
		TotalRowCount: len(rows),
		ColumnTypes:   probe.InferTypes(headers, values),
		Warnings:      warnings,
		Rows:          rows,
	}, nil
}

func wrapReadError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Column: pe.Column, Err: pe}
	}
	return &ParseError{Err: err}
}

// isBlank reports whether every cell of rec is empty or whitespace.
// encoding/csv already drops truly empty lines.
func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// fitRowToWidth truncates or pads a CSV record to exactly n fields.
func fitRowToWidth(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	cp := make([]string, n)
	copy(cp, row)
	return cp
}
