package store

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/dealroom/firestore-connector/internal/tracing"
)

// Ops exposes the store primitives with uniform retry semantics. All calls
// are blocking; each is independently retried according to the policy.
type Ops struct {
	policy RetryPolicy
	logger ectologger.Logger
}

// NewOps creates the store access layer with the given retry policy.
func NewOps(policy RetryPolicy, logger ectologger.Logger) *Ops {
	return &Ops{
		policy: policy,
		logger: logger,
	}
}

// Get retrieves a document. A missing document is not an error; the returned
// snapshot reports Exists() == false.
func (o *Ops) Get(ctx context.Context, ref DocumentRef) (Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Ops.Get")
	defer span.End()

	var snap Snapshot
	err := WithRetry(ctx, o.policy, o.logger, "get", ref.Path(), func() error {
		var err error
		snap, err = ref.Get(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Set creates or merges fields into a document. History documents get their
// last_edit field stamped as part of the same logical write, only after the
// primary write succeeded.
func (o *Ops) Set(ctx context.Context, ref DocumentRef, data map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "store.Ops.Set")
	defer span.End()

	err := WithRetry(ctx, o.policy, o.logger, "set", ref.Path(), func() error {
		return ref.Set(ctx, data, true)
	})
	if err != nil {
		return err
	}
	return o.stampLastEdit(ctx, ref)
}

// Update updates existing fields of a document. History documents get their
// last_edit field stamped after a successful update.
func (o *Ops) Update(ctx context.Context, ref DocumentRef, fields map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "store.Ops.Update")
	defer span.End()

	err := WithRetry(ctx, o.policy, o.logger, "update", ref.Path(), func() error {
		return ref.Update(ctx, fields)
	})
	if err != nil {
		return err
	}
	return o.stampLastEdit(ctx, ref)
}

// Stream opens a document stream for a query.
func (o *Ops) Stream(ctx context.Context, q Query) (DocumentIterator, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Ops.Stream")
	defer span.End()

	var it DocumentIterator
	err := WithRetry(ctx, o.policy, o.logger, "stream", "", func() error {
		var err error
		it, err = q.Documents(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// StreamAll opens a stream and drains it into a snapshot slice.
func (o *Ops) StreamAll(ctx context.Context, q Query) ([]Snapshot, error) {
	it, err := o.Stream(ctx, q)
	if err != nil {
		return nil, err
	}
	defer it.Stop()

	var snaps []Snapshot
	for {
		snap, err := it.Next()
		if err == Done {
			return snaps, nil
		}
		if err != nil {
			return nil, &OperationError{Op: "stream", Err: err}
		}
		snaps = append(snaps, snap)
	}
}

// CollectionExists reports whether the collection holds at least one document.
func (o *Ops) CollectionExists(ctx context.Context, col CollectionRef) (bool, error) {
	snaps, err := o.StreamAll(ctx, col.Limit(1))
	if err != nil {
		return false, err
	}
	return len(snaps) > 0, nil
}

// IsHistoryPath reports whether a document path addresses the history
// collection directly (depth two, first segment "history").
func IsHistoryPath(path string) bool {
	parts := strings.Split(path, "/")
	return len(parts) == 2 && parts[0] == HistoryCollection
}

func (o *Ops) stampLastEdit(ctx context.Context, ref DocumentRef) error {
	if !IsHistoryPath(ref.Path()) {
		return nil
	}
	return WithRetry(ctx, o.policy, o.logger, "set", ref.Path(), func() error {
		return ref.Set(ctx, map[string]any{FieldLastEdit: time.Now().UTC()}, true)
	})
}
