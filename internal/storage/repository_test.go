package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"dataimport/pkg/records"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	cfg    Config
	closed bool
}

func (f *fakeRepo) SaveDocuments(_ context.Context, _ string, docs []records.Record) (int64, error) {
	return int64(len(docs)), nil
}
func (f *fakeRepo) Close() { f.closed = true }

// TestRegisterAndNew verifies that registering a backend enables New() to
// return the corresponding repository with the default table applied.
func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(_ context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{cfg: cfg}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "fake", DSN: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fr := repo.(*fakeRepo)
	if fr.cfg.Table != DefaultTable {
		t.Fatalf("Table = %q; want %q", fr.cfg.Table, DefaultTable)
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v; missing fake", Kinds())
	}
}

func TestNew_Errors(t *testing.T) {
	Register("fake2", func(_ context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{cfg: cfg}, nil
	})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown kind", Config{Kind: "nope"}},
		{"bad table", Config{Kind: "fake2", Table: "docs;drop"}},
		{"leading digit", Config{Kind: "fake2", Table: "1docs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg); err == nil {
				t.Fatalf("New(%+v): error = nil", tt.cfg)
			}
		})
	}

	if _, err := New(context.Background(), Config{Kind: "fake2", Table: "public.docs"}); err != nil {
		t.Fatalf("schema-qualified table rejected: %v", err)
	}
}

func TestPrepareDocuments(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("X", 3600))
	docs, err := PrepareDocuments("clients", []records.Record{{"a": 1}, {"b": "x"}}, now)
	if err != nil {
		t.Fatalf("PrepareDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d", len(docs))
	}
	if docs[0].ID == docs[1].ID {
		t.Fatalf("ids not unique")
	}
	if string(docs[0].Doc) != `{"a":1}` || docs[1].Entity != "clients" {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].ImportedAt.Location() != time.UTC || !docs[0].ImportedAt.Equal(now) {
		t.Fatalf("ImportedAt = %v", docs[0].ImportedAt)
	}
	if !reflect.DeepEqual(docs[0].ImportedAt, docs[1].ImportedAt) {
		t.Fatalf("ImportedAt differs between documents")
	}

	if _, err := PrepareDocuments("clients", []records.Record{{"c": func() {}}}, now); err == nil {
		t.Fatalf("expected encode error")
	}
}
