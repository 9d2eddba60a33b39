// Package metrics provides Prometheus metrics for the connector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperationsTotal tracks store operations by outcome
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firestore_connector",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// StoreRetriesTotal tracks store operations that needed a retry
	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firestore_connector",
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Total number of store operation retries",
		},
		[]string{"operation"},
	)

	// StoreOperationDuration tracks store operation duration in seconds
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "firestore_connector",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// UpsertsTotal tracks upsert decisions by collection and resulting status
	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firestore_connector",
			Subsystem: "upsert",
			Name:      "decisions_total",
			Help:      "Total number of upsert decisions by collection and status",
		},
		[]string{"collection", "status"},
	)

	// BatchCommitsTotal tracks batch commits by outcome
	BatchCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firestore_connector",
			Subsystem: "batch",
			Name:      "commits_total",
			Help:      "Total number of batch commits by outcome",
		},
		[]string{"outcome"},
	)

	// BatchQueuedWrites tracks how many writes each committed batch carried
	BatchQueuedWrites = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "firestore_connector",
			Subsystem: "batch",
			Name:      "queued_writes",
			Help:      "Number of writes queued per committed batch",
			Buckets:   []float64{1, 10, 50, 100, 250, 500},
		},
	)
)
