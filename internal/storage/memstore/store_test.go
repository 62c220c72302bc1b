package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := New()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStore_Ping(t *testing.T) {
	store := setupStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestManager_RegisterAuthenticate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, err := store.RegisterManager(ctx, "alice@example.com", "hunter2")
	if err != nil {
		t.Fatalf("register manager: %v", err)
	}
	if m.APIKey.String() == "" {
		t.Fatal("expected a minted api key")
	}

	if _, err := store.Authenticate(ctx, "alice@example.com", "hunter2"); err != nil {
		t.Errorf("authenticate with correct password: %v", err)
	}

	if _, err := store.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, ddserr.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	found, err := store.FindManager(ctx, m.APIKey)
	if err != nil {
		t.Fatalf("find manager by api key: %v", err)
	}
	if found.Email != m.Email {
		t.Errorf("expected email %q, got %q", m.Email, found.Email)
	}
}

func TestManager_DuplicateEmailRejected(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.RegisterManager(ctx, "bob@example.com", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := store.RegisterManager(ctx, "bob@example.com", "pw2"); err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
}

func TestDataset_RegisterFindListSearchDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, err := store.RegisterManager(ctx, "carol@example.com", "pw")
	if err != nil {
		t.Fatalf("register manager: %v", err)
	}

	cfg := catalog.Config{
		Name:           "weather-readings",
		Classification: catalog.ClassificationPublic,
		Compression:    catalog.CompressionUncompressed,
		Format:         catalog.FormatNDJSON,
		Description:    "hourly weather readings",
		Schema:         catalog.Schema{},
	}

	d, err := store.RegisterDataset(ctx, m.ID, cfg)
	if err != nil {
		t.Fatalf("register dataset: %v", err)
	}
	if d.Name != cfg.Name {
		t.Errorf("expected name %q, got %q", cfg.Name, d.Name)
	}

	found, err := store.FindDataset(ctx, "weather-readings")
	if err != nil {
		t.Fatalf("find dataset: %v", err)
	}
	if found.ID != d.ID {
		t.Errorf("expected id %d, got %d", d.ID, found.ID)
	}

	all, err := store.ListDatasets(ctx, catalog.RangeParams{})
	if err != nil {
		t.Fatalf("list datasets: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(all))
	}

	hits, err := store.SearchDatasets(ctx, "weather")
	if err != nil {
		t.Fatalf("search datasets: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(hits))
	}

	owned, err := store.ManagerDatasets(ctx, m.APIKey)
	if err != nil {
		t.Fatalf("manager datasets: %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("expected manager to own 1 dataset, got %d", len(owned))
	}

	if err := store.DeleteDataset(ctx, "weather-readings"); err != nil {
		t.Fatalf("delete dataset: %v", err)
	}
	if _, err := store.FindDataset(ctx, "weather-readings"); err == nil {
		t.Fatal("expected dataset to be gone after delete")
	}
}

// TestPartition_UpsertIsIdempotentOnName is the round-trip law from §8: the
// final catalog state contains exactly one partition row (D, n) with the
// last-written url and size, no matter how many times it is re-registered.
func TestPartition_UpsertIsIdempotentOnName(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, _ := store.RegisterManager(ctx, "dana@example.com", "pw")
	d, _ := store.RegisterDataset(ctx, m.ID, catalog.Config{
		Name: "events", Classification: catalog.ClassificationPrivate,
		Compression: catalog.CompressionUncompressed, Format: catalog.FormatJSON,
	})

	if _, err := store.RegisterPartition(ctx, d.ID, "2026-01-01", "gs://bucket/events/2026-01-01", 100); err != nil {
		t.Fatalf("register partition: %v", err)
	}
	p2, err := store.RegisterPartition(ctx, d.ID, "2026-01-01", "gs://bucket/events/2026-01-01-v2", 200)
	if err != nil {
		t.Fatalf("re-register partition: %v", err)
	}
	if p2.URL != "gs://bucket/events/2026-01-01-v2" || p2.Size != 200 {
		t.Errorf("expected upsert to overwrite url/size, got %+v", p2)
	}

	all, err := store.ListPartitions(ctx, d.ID)
	if err != nil {
		t.Fatalf("list partitions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one partition row after re-registration, got %d", len(all))
	}
}

func TestPartition_RegisterRejectsReservedName(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, _ := store.RegisterManager(ctx, "erin@example.com", "pw")
	d, _ := store.RegisterDataset(ctx, m.ID, catalog.Config{
		Name: "logs", Classification: catalog.ClassificationPrivate,
		Compression: catalog.CompressionUncompressed, Format: catalog.FormatPlainText,
	})

	_, err := store.RegisterPartition(ctx, d.ID, catalog.PartitionLatest, "gs://bucket/logs/latest", 1)
	if !errors.Is(err, ddserr.ErrReservedPartitionName) {
		t.Errorf("expected ErrReservedPartitionName, got %v", err)
	}
}

func TestPartition_FindLatestResolvesToMostRecent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, _ := store.RegisterManager(ctx, "frank@example.com", "pw")
	d, _ := store.RegisterDataset(ctx, m.ID, catalog.Config{
		Name: "clicks", Classification: catalog.ClassificationPrivate,
		Compression: catalog.CompressionUncompressed, Format: catalog.FormatCSV,
	})

	if _, err := store.RegisterPartition(ctx, d.ID, "part-1", "gs://bucket/clicks/part-1", 1); err != nil {
		t.Fatalf("register part-1: %v", err)
	}
	if _, err := store.RegisterPartition(ctx, d.ID, "part-2", "gs://bucket/clicks/part-2", 2); err != nil {
		t.Fatalf("register part-2: %v", err)
	}

	latest, err := store.FindPartition(ctx, d.ID, catalog.PartitionLatest)
	if err != nil {
		t.Fatalf("find latest partition: %v", err)
	}
	if latest.Name != "part-2" {
		t.Errorf("expected latest to resolve to part-2, got %q", latest.Name)
	}
}

// TestDataset_DeleteCascadesPartitions exercises invariant 1 (§3): deleting
// a dataset also removes every partition that referenced it.
func TestDataset_DeleteCascadesPartitions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, _ := store.RegisterManager(ctx, "gail@example.com", "pw")
	d, _ := store.RegisterDataset(ctx, m.ID, catalog.Config{
		Name: "sessions", Classification: catalog.ClassificationPrivate,
		Compression: catalog.CompressionUncompressed, Format: catalog.FormatJSON,
	})
	if _, err := store.RegisterPartition(ctx, d.ID, "part-1", "gs://bucket/sessions/part-1", 1); err != nil {
		t.Fatalf("register partition: %v", err)
	}

	if err := store.DeleteDataset(ctx, "sessions"); err != nil {
		t.Fatalf("delete dataset: %v", err)
	}

	parts, err := store.ListPartitions(ctx, d.ID)
	if err != nil {
		t.Fatalf("list partitions after cascade: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("expected cascading delete to leave 0 partitions, got %d", len(parts))
	}
}

func TestDataset_RangeBoundsRespectCountAndOffset(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, _ := store.RegisterManager(ctx, "henry@example.com", "pw")
	for _, name := range []string{"a", "b", "c"} {
		if _, err := store.RegisterDataset(ctx, m.ID, catalog.Config{
			Name: name, Classification: catalog.ClassificationPublic,
			Compression: catalog.CompressionUncompressed, Format: catalog.FormatJSON,
		}); err != nil {
			t.Fatalf("register dataset %q: %v", name, err)
		}
	}

	count := int32(1)
	offset := int32(1)
	page, err := store.ListDatasets(ctx, catalog.RangeParams{Count: &count, Offset: &offset})
	if err != nil {
		t.Fatalf("list datasets with count/offset: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected exactly 1 dataset for count=1, got %d", len(page))
	}
	if page[0].Name != "b" {
		t.Errorf("expected second dataset %q at offset 1, got %q", "b", page[0].Name)
	}
}
