// Package ingest runs the periodic pull loop that drains pubsub
// notifications of GCS object changes and dispatches each one against
// the catalog store (C3). It owns no HTTP surface of its own: it is a
// background goroutine started once at daemon startup.
package ingest

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
	"github.com/nilslice/datadictd/internal/metrics"
	"github.com/nilslice/datadictd/internal/notify"
	"github.com/nilslice/datadictd/internal/storage"
)

// dispatchRate bounds how fast a single pulled batch is dispatched
// against the store, so a burst of redeliveries after an outage can't
// hammer the catalog store the instant connectivity returns.
const dispatchRate = 50

// Loop periodically pulls a batch of notifications, sorts them by event
// time, and dispatches them one at a time against a Store.
type Loop struct {
	store        storage.Store
	subscriber   *notify.Subscriber
	pollInterval time.Duration
	log          *slog.Logger
	metrics      *metrics.Registry
	limiter      *rate.Limiter

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Loop. Subscribe must be called once (typically at
// startup, before Start) so the pull subscription already exists. m may
// be nil, in which case dispatch counters are skipped.
func New(store storage.Store, subscriber *notify.Subscriber, pollInterval time.Duration, log *slog.Logger, m *metrics.Registry) *Loop {
	return &Loop{
		store:        store,
		subscriber:   subscriber,
		pollInterval: pollInterval,
		log:          log,
		metrics:      m,
		limiter:      rate.NewLimiter(dispatchRate, dispatchRate),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start runs the pull loop in a background goroutine until Stop is
// called or ctx is cancelled.
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop signals the loop to exit and waits for it to do so.
func (l *Loop) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.pullAndDispatch(ctx); err != nil {
				l.log.Error("ingest pull failed", "error", err)
			}
		}
	}
}

// pullAndDispatch fetches one batch, sorts it ascending by event time
// (messages within a batch can arrive out of order), and dispatches each
// message serially, acking only those whose handling either succeeded or
// was classified as ignore-and-ack.
func (l *Loop) pullAndDispatch(ctx context.Context) error {
	resp, err := l.subscriber.Pull(ctx)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IngestPullErrors.Inc()
		}
		return err
	}
	if len(resp.ReceivedMessages) == 0 {
		return nil
	}

	messages := resp.ReceivedMessages
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Message.Attributes.EventTime.Before(messages[j].Message.Attributes.EventTime)
	})

	for _, msg := range messages {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}

		err := l.dispatch(ctx, msg.Message)
		if err == nil || ddserr.IsIgnoreAndAck(err) {
			if l.metrics != nil {
				l.metrics.IngestMessagesProcessed.WithLabelValues(string(msg.Message.Attributes.EventType)).Inc()
			}
			if ackErr := l.subscriber.Ack(ctx, msg.AckID); ackErr != nil {
				if l.metrics != nil {
					l.metrics.IngestAckErrors.Inc()
				}
				l.log.Error("ack failed", "ack_id", msg.AckID, "error", ackErr)
			}
			continue
		}
		// Leave the message unacked; it is redelivered on a future pull.
		l.log.Error("dispatch failed, leaving message unacked", "ack_id", msg.AckID, "error", err)
	}
	return nil
}

// dispatch handles a single notification: ObjectFinalize/MetadataUpdate/
// Archive register a partition (skipped for the dd.json descriptor and
// for the bare dataset path); ObjectDelete removes a partition, or the
// whole dataset if the deleted object was the bare dataset path or its
// dd.json descriptor.
func (l *Loop) dispatch(ctx context.Context, msg notify.PubsubMessage) error {
	attrs := msg.Attributes
	payload, err := notify.DecodePayload(msg.Data)
	if err != nil {
		return err
	}

	l.log.Info("handling pubsub event", "event_type", attrs.EventType, "object", payload.Name)

	datasetName, err := notify.DatasetName(payload.Name)
	if err != nil {
		return err
	}
	dataset, err := l.store.FindDataset(ctx, datasetName)
	if err != nil {
		return err
	}

	switch attrs.EventType {
	case notify.EventObjectFinalize, notify.EventObjectMetadataUpdate, notify.EventObjectArchive:
		partitionName, err := notify.PartitionName(payload.Name)
		if err != nil {
			return err
		}
		if partitionName == "" {
			return nil
		}
		// "latest" is a reserved alias, not a real partition; a notification
		// for an object actually named "latest" can never be registered and
		// would otherwise retry forever, so it is dropped instead of failed.
		if catalog.IsReservedPartitionName(partitionName) {
			l.log.Warn("ignoring notification for reserved partition name", "partition", partitionName, "dataset", dataset.Name)
			return ddserr.New(ddserr.KindPubsubIgnoreAndAck, "reserved partition name")
		}
		size := parseSize(payload.Size)
		if _, err := l.store.RegisterPartition(ctx, dataset.ID, partitionName, payload.SelfLink, size); err != nil {
			l.log.Error("failed to register partition", "partition", partitionName, "dataset", dataset.Name, "error", err)
			return err
		}
		return nil

	case notify.EventObjectDelete:
		// An ObjectDelete caused by an overwrite (a newer generation
		// replacing this object) is not a real deletion; skip it.
		if attrs.OverwrittenByGeneration != "" {
			return nil
		}

		partitionName, err := notify.PartitionName(payload.Name)
		if err != nil {
			return err
		}
		if partitionName != "" {
			if err := l.store.DeletePartition(ctx, dataset.ID, partitionName); err != nil {
				l.log.Error("failed to delete partition", "partition", partitionName, "dataset", dataset.Name, "error", err)
				return err
			}
			return nil
		}

		if err := l.store.DeleteDataset(ctx, dataset.Name); err != nil {
			l.log.Error("failed to delete dataset", "dataset", dataset.Name, "error", err)
			return err
		}
		return nil
	}

	return ddserr.New(ddserr.KindPubsubIgnoreAndAck, "unrecognized event type")
}

func parseSize(s string) int64 {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}
