package importer

import "errors"

var (
	// ErrUnknownEntity is returned for an entity kind with no schema.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrInvalidMapping is returned when a mapping fails validation or an
	// override names an unknown column or field.
	ErrInvalidMapping = errors.New("invalid mapping")

	// ErrSink wraps failures of the storage sink.
	ErrSink = errors.New("sink failed")
)
