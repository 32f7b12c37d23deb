package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"dataimport/pkg/records"

	"github.com/google/uuid"
)

// Document is the stored form of one built record.
type Document struct {
	ID         uuid.UUID
	Entity     string
	Doc        []byte // JSON
	ImportedAt time.Time
}

// PrepareDocuments assigns ids and encodes docs. All documents of one call
// share the same ImportedAt.
func PrepareDocuments(entity string, docs []records.Record, now time.Time) ([]Document, error) {
	out := make([]Document, 0, len(docs))
	ts := now.UTC()
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
		out = append(out, Document{
			ID:         uuid.New(),
			Entity:     entity,
			Doc:        b,
			ImportedAt: ts,
		})
	}
	return out, nil
}
