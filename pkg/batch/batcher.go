// Package batch accumulates document writes and commits them in a single
// round trip, holding the queue below the store's per-batch write ceiling.
package batch

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/dealroom/firestore-connector/internal/tracing"
	"github.com/dealroom/firestore-connector/pkg/metrics"
	"github.com/dealroom/firestore-connector/pkg/store"
)

// MaxWrites is the most writes a single batch commit may carry.
const MaxWrites = 500

// Batcher queues writes against a store batch and commits them together.
// It is not safe for concurrent use; callers own the accumulation sequence.
type Batcher struct {
	client store.Client
	policy store.RetryPolicy
	logger ectologger.Logger

	batch  store.WriteBatch
	writes int
}

// NewBatcher creates an empty batcher on the given client.
func NewBatcher(client store.Client, policy store.RetryPolicy, logger ectologger.Logger) *Batcher {
	return &Batcher{
		client: client,
		policy: policy,
		logger: logger,
		batch:  client.Batch(),
	}
}

// Len reports the number of queued writes.
func (b *Batcher) Len() int {
	return b.writes
}

// Set queues a merge write. A history document costs two writes since its
// last_edit stamp rides along in the same batch.
func (b *Batcher) Set(ref store.DocumentRef, data map[string]any) error {
	cost := 1
	history := store.IsHistoryPath(ref.Path())
	if history {
		cost = 2
	}
	if err := b.reserve(cost); err != nil {
		return err
	}

	b.batch.Set(ref, data, true)
	if history {
		b.batch.Set(ref, map[string]any{store.FieldLastEdit: time.Now().UTC()}, true)
	}
	return nil
}

// Create queues a write that replaces the document outright.
func (b *Batcher) Create(ref store.DocumentRef, data map[string]any) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.batch.Create(ref, data)
	return nil
}

// Update queues a field update on an existing document.
func (b *Batcher) Update(ref store.DocumentRef, fields map[string]any) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.batch.Update(ref, fields)
	return nil
}

// Delete queues a document deletion.
func (b *Batcher) Delete(ref store.DocumentRef) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.batch.Delete(ref)
	return nil
}

// Commit flushes the queued writes under the retry policy. On success the
// batcher resets and can accumulate again; on failure the queue is kept so
// the caller may retry the commit.
func (b *Batcher) Commit(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "batch.Batcher.Commit")
	defer span.End()

	queued := b.writes
	err := store.WithRetry(ctx, b.policy, b.logger, "commit", "", func() error {
		return b.batch.Commit(ctx)
	})
	if err != nil {
		metrics.BatchCommitsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.BatchCommitsTotal.WithLabelValues("success").Inc()
	metrics.BatchQueuedWrites.Observe(float64(queued))
	b.logger.WithContext(ctx).WithFields(map[string]any{
		"writes": queued,
	}).Debug("Batch committed")

	b.batch = b.client.Batch()
	b.writes = 0
	return nil
}

// reserve admits cost more writes or rejects the whole operation, leaving
// the queue untouched.
func (b *Batcher) reserve(cost int) error {
	if b.writes+cost > MaxWrites {
		return &LimitExceededError{Queued: b.writes, Limit: MaxWrites}
	}
	b.writes += cost
	return nil
}
