// Package file implements a local filesystem-backed data source.
package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataimport/internal/datasource"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ErrTooLarge is returned when a file exceeds Local.MaxBytes.
var ErrTooLarge = errors.New("file exceeds size limit")

// Local reads one file from the local disk.
type Local struct {
	Path string
	// Sheet selects the worksheet of an .xlsx file; empty means the first.
	Sheet string
	// MaxBytes caps the file size; 0 disables the check.
	MaxBytes int64
}

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local source bound to path with no size limit.
func NewLocal(path string) *Local { return &Local{Path: path} }

// Name implements datasource.Source.
func (l *Local) Name() string { return filepath.Base(l.Path) }

// Open opens the configured path for reading.
//
// If ctx is already done, Open returns the context error without touching
// the filesystem. Filesystem errors keep their cause for errors.Is checks
// (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.Path, err)
	}
	return f, nil
}

// ReadText implements datasource.Source. Files ending in .xlsx are converted
// to CSV; anything else is returned as read.
func (l *Local) ReadText(ctx context.Context) ([]byte, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := io.Reader(rc)
	if l.MaxBytes > 0 {
		r = io.LimitReader(rc, l.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", l.Path)
	}
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "%s: limit %d bytes", l.Path, l.MaxBytes)
	}

	if strings.EqualFold(filepath.Ext(l.Path), ".xlsx") {
		return xlsxToCSV(data, l.Sheet)
	}
	return data, nil
}

// xlsxToCSV renders one worksheet as comma-separated text.
func xlsxToCSV(data []byte, sheet string) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("xlsx has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, "write csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "write csv")
	}
	return buf.Bytes(), nil
}
