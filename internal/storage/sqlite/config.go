// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:import.db?cache=shared"
	//   ":memory:"
	DSN string

	// Table receives one row per document. It is created on first use.
	Table string

	// BatchSize bounds the rows written per statement loop; 0 uses
	// storage.DefaultBatchSize.
	BatchSize int
}
