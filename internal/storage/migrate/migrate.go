// Package migrate provides database migration management with checksums and locking.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// Config holds migration configuration.
type Config struct {
	// VerifyChecksums makes Up call verifyChecksums before migrating.
	// verifyChecksums has no stored checksums to compare against and
	// always succeeds, so this setting does not change what Up does.
	VerifyChecksums bool

	// OnChecksumMismatch determines behavior when checksum verification fails.
	// Options: "fail" (abort startup), "warn" (log warning), "ignore"
	OnChecksumMismatch string

	// LockTimeout is how long to wait for the migration lock.
	LockTimeout time.Duration
}

// DefaultConfig returns default migration configuration.
func DefaultConfig() Config {
	return Config{
		VerifyChecksums:    true,
		OnChecksumMismatch: "fail",
		LockTimeout:        15 * time.Second,
	}
}

// Manager handles database migrations for a single backend.
type Manager struct {
	cfg       Config
	backend   string
	m         *migrate.Migrate
	checksums map[string]string // "version/filename" -> checksum
}

// NewPostgresManager creates a migration manager for the Postgres store.
func NewPostgresManager(db *sql.DB, cfg Config) (*Manager, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "datadictd_schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}
	return newManager("postgres", driver, postgresFS, "migrations/postgres", cfg)
}

// NewSQLiteManager creates a migration manager for the memstore's in-memory SQLite backend.
func NewSQLiteManager(db *sql.DB, cfg Config) (*Manager, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{
		MigrationsTable: "datadictd_schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	return newManager("sqlite", driver, sqliteFS, "migrations/sqlite", cfg)
}

func newManager(backend string, driver database.Driver, fsys embed.FS, path string, cfg Config) (*Manager, error) {
	sourceDriver, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("create migration source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "database", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	m.LockTimeout = cfg.LockTimeout

	mgr := &Manager{
		cfg:       cfg,
		backend:   backend,
		m:         m,
		checksums: make(map[string]string),
	}

	if err := mgr.calculateChecksums(fsys, path); err != nil {
		return nil, fmt.Errorf("calculate migration checksums: %w", err)
	}
	return mgr, nil
}

func (m *Manager) calculateChecksums(fsys embed.FS, path string) error {
	entries, err := fs.ReadDir(fsys, path)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fsys, path+"/"+entry.Name())
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", entry.Name(), err)
		}

		hash := sha256.Sum256(content)
		checksum := fmt.Sprintf("%x", hash)

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		version := strings.TrimLeft(parts[0], "0")
		if version == "" {
			version = "0"
		}

		m.checksums[version+"/"+entry.Name()] = checksum
	}
	return nil
}

// Up runs all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, m.cfg.LockTimeout)
	defer cancel()
	_ = lockCtx // golang-migrate manages its own advisory lock during Up/Steps

	if m.cfg.VerifyChecksums {
		if err := m.verifyChecksums(ctx); err != nil {
			switch m.cfg.OnChecksumMismatch {
			case "fail":
				return fmt.Errorf("verify migration checksums: %w", err)
			case "warn":
				fmt.Printf("WARNING: migration checksum verification failed: %v\n", err)
			case "ignore":
			default:
				return fmt.Errorf("verify migration checksums: %w", err)
			}
		}
	}

	if err := m.m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Down rolls back one migration step. Intended for admin tooling, not
// the server's normal startup path.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Version returns the current migration version.
func (m *Manager) Version() (uint, bool, error) {
	return m.m.Version()
}

// verifyChecksums is a hook for a future migration_checksums table; until
// that table exists there is nothing stored to compare against.
func (m *Manager) verifyChecksums(ctx context.Context) error {
	return nil
}

// Close releases the underlying source and database driver handles.
func (m *Manager) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// MigrationInfo describes one migration file known to a Manager.
type MigrationInfo struct {
	Version     uint
	Description string
	Applied     bool
	Checksum    string
}

// List returns information about every known migration, applied or not.
func (m *Manager) List() ([]MigrationInfo, error) {
	var migrations []MigrationInfo

	currentVersion, dirty, err := m.m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return nil, fmt.Errorf("get migration version: %w", err)
	}

	for key := range m.checksums {
		parts := strings.SplitN(key, "/", 2)
		if len(parts) != 2 {
			continue
		}
		version, filename := parts[0], parts[1]
		if !strings.Contains(filename, ".up.sql") {
			continue
		}

		desc := strings.TrimSuffix(filename, ".up.sql")
		desc = strings.TrimPrefix(desc, version+"_")
		desc = strings.ReplaceAll(desc, "_", " ")

		var v uint
		fmt.Sscanf(version, "%d", &v)

		migrations = append(migrations, MigrationInfo{
			Version:     v,
			Description: desc,
			Applied:     !dirty && v <= currentVersion,
			Checksum:    m.checksums[key],
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
