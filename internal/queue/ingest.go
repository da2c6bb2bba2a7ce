package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/intellicase/backend/internal/storage"
	"github.com/intellicase/backend/pkg/common"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/leaselock"
	"github.com/intellicase/backend/pkg/logger"
)

// ObjectStore is the part of storage.BatchStore the worker needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Locker serializes work on a key across workers.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// BatchMerger merges decoded batches into the graph.
type BatchMerger interface {
	MergeBatch(ctx context.Context, batch common.RecordBatch) ([]common.MergeResult, error)
}

// Publisher sends a message to a queue or topic.
type Publisher func(name string, data []byte) error

// Ingestor processes ingest_queue messages.
type Ingestor struct {
	Objects      ObjectStore
	Locks        Locker
	Merger       BatchMerger
	PublishQueue Publisher
	PublishTopic Publisher
}

// ProcessIngestMessage loads the referenced batch, merges it while holding
// the lease of its target case and removes the object afterwards. Any
// returned error leaves the object in place so a redelivery can retry; merges
// are idempotent, so a partially merged batch is safe to replay.
func (in *Ingestor) ProcessIngestMessage(ctx context.Context, body []byte) error {
	var msg IngestBatchMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode ingest message: %w", err)
	}
	if msg.BatchKey == "" {
		return fmt.Errorf("ingest message %s has no batch key", msg.CorrelationID)
	}

	data, err := in.Objects.Get(ctx, msg.BatchKey)
	if err != nil {
		return err
	}
	batch, err := common.DecodeRecordBatch(data, msg.BatchKey)
	if err != nil {
		return err
	}
	if link := strings.TrimSpace(msg.LinkCaseID); link != "" {
		batch.LinkCaseID = link
	}

	start := time.Now()
	var results []common.MergeResult
	err = in.Locks.WithLease(ctx, leaselock.CaseKey(batch.LinkCaseID), leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("ingest/%s/", msg.CorrelationID),
	}, func(ctx context.Context) error {
		var err error
		results, err = in.Merger.MergeBatch(ctx, batch)
		return err
	})
	if err != nil {
		return err
	}

	counts := graph.CountStatuses(results)
	event := IngestCompletedEvent{
		CorrelationID: msg.CorrelationID,
		LinkCaseID:    batch.LinkCaseID,
		Records:       len(results),
		Merged:        counts[common.StatusMerged],
		Noop:          counts[common.StatusNoop],
		Skipped:       counts[common.StatusSkipped],
		DurationMs:    time.Since(start).Milliseconds(),
	}
	logger.Info("[Queue] Batch ingested",
		"correlation_id", event.CorrelationID,
		"link_case_id", event.LinkCaseID,
		"records", event.Records,
		"merged", event.Merged,
		"noop", event.Noop,
		"skipped", event.Skipped,
	)

	if err := in.Objects.Delete(ctx, msg.BatchKey); err != nil {
		logger.Warn("[Queue] Failed to delete batch object", "batch_key", msg.BatchKey, "err", err)
	}

	if in.PublishTopic != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			err = in.PublishTopic(TopicIngestCompleted, payload)
		}
		if err != nil {
			logger.Warn("[Queue] Failed to publish ingest event", "correlation_id", msg.CorrelationID, "err", err)
		}
	}
	return nil
}

// RecoverStaleBatches republishes batch objects older than maxAge. Objects
// are deleted once merged, so anything left behind belongs to a lost or
// dead-lettered message.
func (in *Ingestor) RecoverStaleBatches(ctx context.Context, maxAge time.Duration) error {
	objects, err := in.Objects.List(ctx, storage.BatchPrefix)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	recovered := 0
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		id := strings.TrimPrefix(obj.Key, storage.BatchPrefix)
		if dot := strings.LastIndex(id, "."); dot > 0 {
			id = id[:dot]
		}
		payload, err := json.Marshal(IngestBatchMsg{
			Message:       "Recovered stale batch",
			CorrelationID: id,
			BatchKey:      obj.Key,
			SubmittedAt:   obj.LastModified,
		})
		if err != nil {
			return err
		}
		if err := in.PublishQueue(IngestQueue, payload); err != nil {
			logger.Error("[Queue] Failed to republish batch", "batch_key", obj.Key, "err", err)
			continue
		}
		recovered++
		logger.Info("[Queue] Recovered stale batch", "batch_key", obj.Key)
	}

	if recovered == 0 {
		logger.Debug("[Queue] No stale batches found")
	}
	return nil
}
