// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. Documents are written inside a
// single transaction per SaveDocuments call.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dataimport/internal/storage"
	"dataimport/pkg/records"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// NewRepository opens a SQLite connection, ensures the documents table exists
// and returns a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if cfg.Table == "" {
		cfg.Table = storage.DefaultTable
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sqlite: open")
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "sqlite: ping")
	}

	r := &Repository{db: db, cfg: cfg, now: time.Now}
	if err := r.ensureTable(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return r, func() { db.Close() }, nil
}

func (r *Repository) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	entity      TEXT NOT NULL,
	doc         TEXT NOT NULL,
	imported_at TEXT NOT NULL
)`, r.cfg.Table)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrapf(err, "sqlite: create table %s", r.cfg.Table)
	}
	return nil
}

// SaveDocuments implements storage.Repository. Either all documents are
// committed or none are.
func (r *Repository) SaveDocuments(ctx context.Context, entity string, docs []records.Record) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	prepared, err := storage.PrepareDocuments(entity, docs, r.now())
	if err != nil {
		return 0, errors.Wrap(err, "sqlite")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite: begin tx")
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, entity, doc, imported_at) VALUES (?, ?, ?, ?)", r.cfg.Table))
	if err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	batch := r.cfg.BatchSize
	if batch <= 0 {
		batch = storage.DefaultBatchSize
	}
	n, err := storage.WriteBatches(ctx, prepared, batch, func(ctx context.Context, b []storage.Document) (int64, error) {
		var written int64
		for _, d := range b {
			if _, err := stmt.ExecContext(ctx, d.ID.String(), d.Entity, string(d.Doc), d.ImportedAt.Format(time.RFC3339Nano)); err != nil {
				return written, errors.Wrap(err, "sqlite: insert")
			}
			written++
		}
		return written, nil
	})
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// Count returns the number of stored documents for entity.
func (r *Repository) Count(ctx context.Context, entity string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE entity = ?", r.cfg.Table), entity).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite: count")
	}
	return n, nil
}
