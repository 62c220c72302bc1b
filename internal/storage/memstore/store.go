// Package memstore is a SQLite-backed implementation of storage.Store for
// tests, satisfying the same interface as internal/storage/postgres so
// that the HTTP handlers and the ingest loop can be exercised without a
// live Postgres instance. It is not used in production (§9: "an
// in-memory implementation satisfies the same interface for tests").
package memstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nilslice/datadictd/internal/storage/migrate"
)

// Store is the SQLite-backed test double for storage.Store.
type Store struct {
	db *sql.DB
}

// New opens an in-memory SQLite database. Using "file::memory:?cache=shared"
// keeps a single logical database alive across the connection pool, which
// database/sql would otherwise open as independent, isolated databases.
func New() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	mgr, err := migrate.NewSQLiteManager(s.db, migrate.DefaultConfig())
	if err != nil {
		return fmt.Errorf("build migration manager: %w", err)
	}
	defer mgr.Close()
	return mgr.Up(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}
