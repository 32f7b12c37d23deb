// Package datasource defines where import bytes come from.
package datasource

import "context"

// Source yields the full content of one import file. Spreadsheet sources
// return CSV text; everything else is returned verbatim so the parser can
// detect its encoding.
type Source interface {
	Name() string
	ReadText(ctx context.Context) ([]byte, error)
}

// Bytes is an in-memory Source, used for HTTP bodies and tests.
type Bytes struct {
	Label string
	Data  []byte
}

// Name implements Source.
func (b Bytes) Name() string { return b.Label }

// ReadText implements Source.
func (b Bytes) ReadText(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Data, nil
}
