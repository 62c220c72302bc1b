package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/notify"
	"github.com/nilslice/datadictd/internal/storage"
)

var _ storage.Store = (*fakeStore)(nil)

// fakeStore is a minimal in-memory storage.Store double, enough to
// exercise the ingest loop's dispatch logic without a real database.
type fakeStore struct {
	mu         sync.Mutex
	datasets   map[string]catalog.Dataset
	partitions map[int32]map[string]catalog.Partition
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		datasets:   map[string]catalog.Dataset{"weather": {ID: 1, Name: "weather"}},
		partitions: map[int32]map[string]catalog.Partition{1: {}},
	}
}

func (f *fakeStore) RegisterManager(context.Context, string, string) (catalog.Manager, error) { return catalog.Manager{}, nil }
func (f *fakeStore) Authenticate(context.Context, string, string) (catalog.Manager, error)    { return catalog.Manager{}, nil }
func (f *fakeStore) FindManager(context.Context, uuid.UUID) (catalog.Manager, error)          { return catalog.Manager{}, nil }
func (f *fakeStore) ManagerDatasets(context.Context, uuid.UUID) ([]catalog.Dataset, error)    { return nil, nil }
func (f *fakeStore) RegisterDataset(context.Context, int32, catalog.Config) (catalog.Dataset, error) {
	return catalog.Dataset{}, nil
}

func (f *fakeStore) FindDataset(ctx context.Context, name string) (catalog.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.datasets[name]
	if !ok {
		return catalog.Dataset{}, fmt.Errorf("dataset %q not found", name)
	}
	return d, nil
}

func (f *fakeStore) ListDatasets(context.Context, catalog.RangeParams) ([]catalog.Dataset, error) { return nil, nil }
func (f *fakeStore) SearchDatasets(context.Context, string) ([]catalog.Dataset, error)             { return nil, nil }

func (f *fakeStore) DeleteDataset(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.datasets, name)
	return nil
}

func (f *fakeStore) RegisterPartition(ctx context.Context, datasetID int32, name, url string, size int64) (catalog.Partition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := catalog.Partition{DatasetID: datasetID, Name: name, URL: url, Size: size}
	f.partitions[datasetID][name] = p
	return p, nil
}

func (f *fakeStore) DeletePartition(ctx context.Context, datasetID int32, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.partitions[datasetID], name)
	return nil
}

func (f *fakeStore) FindPartition(context.Context, int32, string) (catalog.Partition, error) {
	return catalog.Partition{}, nil
}
func (f *fakeStore) ListPartitions(context.Context, int32) ([]catalog.Partition, error) { return nil, nil }
func (f *fakeStore) RangePartitions(context.Context, int32, catalog.RangeParams) ([]catalog.Partition, error) {
	return nil, nil
}
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Close()                        {}

func (f *fakeStore) partitionCount(datasetID int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.partitions[datasetID])
}

// fakePubsub serves just enough of the Pub/Sub REST surface (pull,
// acknowledge) for the loop to exercise a single batch.
type fakePubsub struct {
	mu      sync.Mutex
	pending []notify.ReceivedMessage
	acked   []string
}

func (f *fakePubsub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && hasSuffix(r.URL.Path, ":pull"):
			resp := notify.PullResponse{ReceivedMessages: f.pending}
			f.pending = nil
			json.NewEncoder(w).Encode(resp)
		case r.Method == http.MethodPost && hasSuffix(r.URL.Path, ":acknowledge"):
			var body struct {
				AckIDs []string `json:"ackIds"`
			}
			data, _ := io.ReadAll(r.Body)
			json.Unmarshal(data, &body)
			f.acked = append(f.acked, body.AckIDs...)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func encodePayload(t *testing.T, p notify.Payload) string {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestLoop_RegistersPartitionOnFinalize(t *testing.T) {
	store := newFakeStore()
	pubsub := &fakePubsub{}
	server := httptest.NewServer(pubsub.handler())
	defer server.Close()

	pubsub.pending = []notify.ReceivedMessage{{
		AckID: "ack-1",
		Message: notify.PubsubMessage{
			Data: encodePayload(t, notify.Payload{Name: "weather/2026/01/01.csv", SelfLink: "gs://bucket/weather/2026/01/01.csv", Size: "42"}),
			Attributes: notify.Attributes{
				EventType: notify.EventObjectFinalize,
				EventTime: time.Now(),
			},
		},
	}}

	subscriber := notify.NewSubscriber("proj", "topic", "sub", server.URL, 10)
	loop := New(store, subscriber, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	if err := loop.pullAndDispatch(context.Background()); err != nil {
		t.Fatalf("pullAndDispatch: %v", err)
	}

	if store.partitionCount(1) != 1 {
		t.Fatalf("expected 1 partition registered, got %d", store.partitionCount(1))
	}
	if len(pubsub.acked) != 1 || pubsub.acked[0] != "ack-1" {
		t.Fatalf("expected ack-1 to be acked, got %v", pubsub.acked)
	}
}

func TestLoop_SkipsDeleteCausedByOverwrite(t *testing.T) {
	store := newFakeStore()
	store.partitions[1]["part-1"] = catalog.Partition{DatasetID: 1, Name: "part-1"}
	pubsub := &fakePubsub{}
	server := httptest.NewServer(pubsub.handler())
	defer server.Close()

	pubsub.pending = []notify.ReceivedMessage{{
		AckID: "ack-2",
		Message: notify.PubsubMessage{
			Data: encodePayload(t, notify.Payload{Name: "weather/part-1"}),
			Attributes: notify.Attributes{
				EventType:               notify.EventObjectDelete,
				OverwrittenByGeneration: "12345",
				EventTime:               time.Now(),
			},
		},
	}}

	subscriber := notify.NewSubscriber("proj", "topic", "sub", server.URL, 10)
	loop := New(store, subscriber, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	if err := loop.pullAndDispatch(context.Background()); err != nil {
		t.Fatalf("pullAndDispatch: %v", err)
	}

	if store.partitionCount(1) != 1 {
		t.Errorf("expected overwrite-caused delete to be a no-op, got %d partitions", store.partitionCount(1))
	}
	if len(pubsub.acked) != 1 {
		t.Errorf("expected the skipped message to still be acked, got %v", pubsub.acked)
	}
}

func TestLoop_IgnoresAndAcksReservedPartitionName(t *testing.T) {
	store := newFakeStore()
	pubsub := &fakePubsub{}
	server := httptest.NewServer(pubsub.handler())
	defer server.Close()

	pubsub.pending = []notify.ReceivedMessage{{
		AckID: "ack-4",
		Message: notify.PubsubMessage{
			Data: encodePayload(t, notify.Payload{Name: "weather/latest", SelfLink: "gs://bucket/weather/latest", Size: "1"}),
			Attributes: notify.Attributes{
				EventType: notify.EventObjectFinalize,
				EventTime: time.Now(),
			},
		},
	}}

	subscriber := notify.NewSubscriber("proj", "topic", "sub", server.URL, 10)
	loop := New(store, subscriber, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	if err := loop.pullAndDispatch(context.Background()); err != nil {
		t.Fatalf("pullAndDispatch: %v", err)
	}

	if store.partitionCount(1) != 0 {
		t.Errorf("expected no partition registered for reserved name \"latest\", got %d", store.partitionCount(1))
	}
	if len(pubsub.acked) != 1 || pubsub.acked[0] != "ack-4" {
		t.Fatalf("expected the reserved-name message to still be acked, got %v", pubsub.acked)
	}
}

func TestLoop_DeleteWithoutPartitionRemovesDataset(t *testing.T) {
	store := newFakeStore()
	pubsub := &fakePubsub{}
	server := httptest.NewServer(pubsub.handler())
	defer server.Close()

	pubsub.pending = []notify.ReceivedMessage{{
		AckID: "ack-3",
		Message: notify.PubsubMessage{
			Data: encodePayload(t, notify.Payload{Name: "weather"}),
			Attributes: notify.Attributes{
				EventType: notify.EventObjectDelete,
				EventTime: time.Now(),
			},
		},
	}}

	subscriber := notify.NewSubscriber("proj", "topic", "sub", server.URL, 10)
	loop := New(store, subscriber, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	if err := loop.pullAndDispatch(context.Background()); err != nil {
		t.Fatalf("pullAndDispatch: %v", err)
	}

	if _, err := store.FindDataset(context.Background(), "weather"); err == nil {
		t.Error("expected dataset to be deleted")
	}
}
