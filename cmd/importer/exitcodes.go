package main

import (
	"errors"

	"dataimport/internal/importer"
	pcsv "dataimport/internal/parser/csv"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitParse      = 4
	exitSink       = 5
)

// usageError marks bad flags, arguments or job files.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// errValidationFailed is returned when a mapping does not validate but the
// command otherwise succeeded and printed its report.
var errValidationFailed = errors.New("validation failed")

func exitCode(err error) int {
	var (
		ue usageError
		pe *pcsv.ParseError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.Is(err, importer.ErrUnknownEntity):
		return exitUsage
	case errors.As(err, &pe):
		return exitParse
	case errors.Is(err, importer.ErrSink):
		return exitSink
	case errors.Is(err, errValidationFailed), errors.Is(err, importer.ErrInvalidMapping):
		return exitValidation
	default:
		return exitFailure
	}
}
