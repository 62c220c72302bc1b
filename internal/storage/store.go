// Package storage defines the catalog's capability interface (the
// "DataService" of the original design) and hosts its two concrete
// implementations: a Postgres-backed store for production use
// (internal/storage/postgres) and a SQLite-backed store for tests
// (internal/storage/memstore). Both satisfy Store, so HTTP handlers and
// the ingest loop depend only on this package, never on a backend.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/nilslice/datadictd/internal/catalog"
)

// Store is the full set of catalog operations consumed by the HTTP
// surface (C5) and the ingest loop (C3), grounded on the original
// DataService capability interface.
type Store interface {
	RegisterManager(ctx context.Context, email, password string) (catalog.Manager, error)
	Authenticate(ctx context.Context, email, password string) (catalog.Manager, error)
	FindManager(ctx context.Context, apiKey uuid.UUID) (catalog.Manager, error)
	ManagerDatasets(ctx context.Context, apiKey uuid.UUID) ([]catalog.Dataset, error)

	RegisterDataset(ctx context.Context, managerID int32, cfg catalog.Config) (catalog.Dataset, error)
	FindDataset(ctx context.Context, name string) (catalog.Dataset, error)
	ListDatasets(ctx context.Context, params catalog.RangeParams) ([]catalog.Dataset, error)
	SearchDatasets(ctx context.Context, term string) ([]catalog.Dataset, error)
	DeleteDataset(ctx context.Context, name string) error

	RegisterPartition(ctx context.Context, datasetID int32, name, url string, size int64) (catalog.Partition, error)
	DeletePartition(ctx context.Context, datasetID int32, name string) error
	FindPartition(ctx context.Context, datasetID int32, name string) (catalog.Partition, error)
	ListPartitions(ctx context.Context, datasetID int32) ([]catalog.Partition, error)
	RangePartitions(ctx context.Context, datasetID int32, params catalog.RangeParams) ([]catalog.Partition, error)

	// Migrate runs the forward-only schema migration sequence. Called
	// once at startup; failure is fatal (§4.1.2).
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}
