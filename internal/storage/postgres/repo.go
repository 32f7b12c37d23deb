// Package postgres implements a Postgres-backed storage.Repository using pgx
// v5. Documents are loaded with COPY into a JSONB table.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dataimport/internal/storage"
	"dataimport/pkg/records"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN       string // connection string for pgxpool
	Table     string // target table, optionally schema-qualified, e.g. "public.imported_documents"
	BatchSize int    // rows per COPY; 0 uses storage.DefaultBatchSize
}

// copier is the subset of *pgxpool.Pool used for writes.
type copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	db  copier
	cfg Config
	now func() time.Time
}

var documentColumns = []string{"id", "entity", "doc", "imported_at"}

// NewRepository connects, ensures the documents table exists and returns a
// Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	if cfg.Table == "" {
		cfg.Table = storage.DefaultTable
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "pgxpool")
	}
	r := &Repository{db: poolCopier{pool}, cfg: cfg, now: time.Now}
	if err := r.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return r, pool.Close, nil
}

// CreateTableSQL returns the DDL for the documents table.
func CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          uuid PRIMARY KEY,
	entity      text NOT NULL,
	doc         jsonb NOT NULL,
	imported_at timestamptz NOT NULL
)`, pgFQN(table))
}

func (r *Repository) ensureTable(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, CreateTableSQL(r.cfg.Table)); err != nil {
		return errors.Wrapf(err, "postgres: create table %s", r.cfg.Table)
	}
	return nil
}

// SaveDocuments implements storage.Repository, one COPY per batch.
func (r *Repository) SaveDocuments(ctx context.Context, entity string, docs []records.Record) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	prepared, err := storage.PrepareDocuments(entity, docs, r.now())
	if err != nil {
		return 0, errors.Wrap(err, "postgres")
	}
	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = storage.DefaultBatchSize
	}
	ident := splitFQN(r.cfg.Table)
	return storage.WriteBatches(ctx, prepared, batch, func(ctx context.Context, b []storage.Document) (int64, error) {
		n, err := r.db.CopyFrom(ctx, ident, documentColumns, pgx.CopyFromRows(copyRows(b)))
		if err != nil {
			return n, errors.Wrap(err, "postgres: copy")
		}
		return n, nil
	})
}

func copyRows(docs []storage.Document) [][]any {
	rows := make([][]any, len(docs))
	for i, d := range docs {
		rows[i] = []any{[16]byte(d.ID), d.Entity, d.Doc, d.ImportedAt}
	}
	return rows
}

// pgIdent quotes a single identifier.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.docs" to
// "public"."docs".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

func splitFQN(fqn string) pgx.Identifier {
	return pgx.Identifier(strings.Split(fqn, "."))
}
