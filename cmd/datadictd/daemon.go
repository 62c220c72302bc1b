package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/nilslice/datadictd/internal/blob"
	"github.com/nilslice/datadictd/internal/config"
	"github.com/nilslice/datadictd/internal/httpapi"
	"github.com/nilslice/datadictd/internal/ingest"
	"github.com/nilslice/datadictd/internal/logger"
	"github.com/nilslice/datadictd/internal/metrics"
	"github.com/nilslice/datadictd/internal/notify"
	"github.com/nilslice/datadictd/internal/storage"
	"github.com/nilslice/datadictd/internal/storage/postgres"
)

// Daemon owns every long-lived component of the service: the catalog
// store, the blob coordinator, the ingest loop, and the HTTP server.
// Start order mirrors the dependency order in which components are
// built (store, then blob, then ingest, then HTTP, since HTTP's
// handlers need the first two already constructed).
type Daemon struct {
	cfg *config.ServiceConfig
	log *logger.Logger

	metrics     *metrics.Registry
	store       storage.Store
	coordinator *blob.Coordinator
	subscriber  *notify.Subscriber
	loop        *ingest.Loop
	httpServer  *http.Server

	mu      sync.Mutex
	running bool
}

func NewDaemon(cfg *config.ServiceConfig, log *logger.Logger) *Daemon {
	return &Daemon{cfg: cfg, log: log}
}

// Start brings up storage, the blob coordinator, the ingest loop, and
// the HTTP server in that order. On failure it tears down whatever it
// already started.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("daemon already running")
	}

	d.metrics = metrics.New()

	if err := d.startStorage(ctx); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}

	d.startBlob()

	if err := d.startIngest(ctx); err != nil {
		d.store.Close()
		return fmt.Errorf("start ingest: %w", err)
	}

	d.startHTTP()

	d.running = true
	return nil
}

func (d *Daemon) startStorage(ctx context.Context) error {
	poolCfg := postgres.DefaultPoolConfig()
	poolCfg.MinIdle = d.cfg.Database.MinIdle
	poolCfg.MaxSize = d.cfg.Database.MaxSize

	store, err := postgres.New(ctx, d.cfg.Database.Params, poolCfg)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	d.store = store
	return nil
}

func (d *Daemon) startBlob() {
	buckets := blob.BucketNames{
		Private:      d.cfg.Storage.BucketNamePrivate,
		Public:       d.cfg.Storage.BucketNamePublic,
		Sensitive:    d.cfg.Storage.BucketNameSensitive,
		Confidential: d.cfg.Storage.BucketNameConfidential,
	}
	d.coordinator = blob.New(d.cfg.Storage.ServiceEndpoint, d.cfg.Storage.BearerToken, buckets)
}

// startIngest creates the pull subscription (idempotent per §6: 200/409
// both count as success) before starting the poll loop.
func (d *Daemon) startIngest(ctx context.Context) error {
	d.subscriber = notify.NewSubscriber(
		d.cfg.Pubsub.ProjectID,
		d.cfg.Pubsub.TopicName,
		d.cfg.Pubsub.SubscriptionName,
		d.cfg.Pubsub.ServiceEndpoint,
		d.cfg.Pubsub.MaxMessages,
	)
	if err := d.subscriber.Subscribe(ctx); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	d.loop = ingest.New(d.store, d.subscriber, d.cfg.Pubsub.PollInterval, d.log.Logger, d.metrics)
	d.loop.Start(ctx)
	return nil
}

func (d *Daemon) startHTTP() {
	srv := httpapi.New(d.store, d.coordinator, d.cfg.ManagerDomain, d.log.Logger, d.metrics)
	d.httpServer = &http.Server{
		Addr:    d.cfg.HTTP.ListenAddr,
		Handler: srv.Router(),
	}
	go func() {
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Error("http server exited", "error", err)
		}
	}()
}

// Stop shuts the HTTP server down gracefully, stops the ingest loop,
// then closes the store, in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}

	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(ctx); err != nil {
			d.log.Error("http server shutdown error", "error", err)
		}
	}
	if d.loop != nil {
		d.loop.Stop()
	}
	if d.store != nil {
		d.store.Close()
	}

	d.running = false
	return nil
}
