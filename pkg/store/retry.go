package store

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/cenkalti/backoff/v4"

	"github.com/dealroom/firestore-connector/pkg/metrics"
)

// RetryPolicy controls how store primitives behave on failure: each failed
// call waits Delay and is retried up to Attempts more times. Tests inject a
// zero-delay policy.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultRetryPolicy retries a failed call exactly once after five seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 1, Delay: 5 * time.Second}
}

// WithRetry runs fn under the policy, converting a final failure into an
// OperationError carrying the operation name.
func WithRetry(ctx context.Context, policy RetryPolicy, logger ectologger.Logger, op, target string, fn func() error) error {
	start := time.Now()

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.Attempts))
	err := backoff.RetryNotify(fn, backoff.WithContext(b, ctx), func(err error, _ time.Duration) {
		logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"operation": op,
			"target":    target,
		}).Warn("Store operation failed, retrying")
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
	})

	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StoreOperationsTotal.WithLabelValues(op, "error").Inc()
		logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"operation": op,
			"target":    target,
		}).Error("Store operation failed after retrying")
		return &OperationError{Op: op, Target: target, Err: err}
	}

	metrics.StoreOperationsTotal.WithLabelValues(op, "success").Inc()
	return nil
}
