package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	stdlibpgx "github.com/jackc/pgx/v5/stdlib"

	"github.com/nilslice/datadictd/internal/storage/migrate"
)

// Store is the Postgres-backed implementation of storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies connectivity. It does not
// migrate; Migrate is called separately on the returned Store and runs
// over this same pool.
func New(ctx context.Context, connString string, cfg PoolConfig) (*Store, error) {
	pool, err := newPool(ctx, connString, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an already-open pool, for tests that construct one directly.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate runs the forward-only schema migration sequence (§4.1.2).
// Failure is fatal at startup, per §7's propagation rules.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlibpgx.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrateUp(ctx, db)
}

func migrateUp(ctx context.Context, db *sql.DB) error {
	mgr, err := migrate.NewPostgresManager(db, migrate.DefaultConfig())
	if err != nil {
		return fmt.Errorf("build migration manager: %w", err)
	}
	defer mgr.Close()
	return mgr.Up(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}
