// Package storage contains the storage-agnostic contract for import sinks and
// a small factory registry. Backends register themselves from init; callers
// obtain a Repository via New without importing a backend directly.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"dataimport/pkg/records"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "imported_documents"

// Repository persists built documents.
type Repository interface {
	// SaveDocuments stores docs for entity and reports how many were written.
	SaveDocuments(ctx context.Context, entity string, docs []records.Record) (int64, error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind  string // "sqlite", "postgres"
	DSN   string
	Table string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var tableRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// New opens the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q", cfg.Kind)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tableRE.MatchString(cfg.Table) {
		return nil, fmt.Errorf("storage: invalid table name %q", cfg.Table)
	}
	return f(ctx, cfg)
}
