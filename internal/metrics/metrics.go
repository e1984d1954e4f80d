// Package metrics provides Prometheus metrics for the content engine.
package metrics

import (
	"coursecatalog/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts service operations.
	// Labels: entity (course, chapter, lesson), operation, result (ok or an error kind)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "content",
			Name:      "operations_total",
			Help:      "Total number of content operations by outcome",
		},
		[]string{"entity", "operation", "result"},
	)

	// BatchSize tracks how many items bulk operations carry.
	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "content",
			Name:      "batch_size",
			Help:      "Number of items per bulk operation",
			Buckets:   []float64{1, 2, 3, 5, 10, 25},
		},
		[]string{"entity", "operation"},
	)

	// CascadedLessons tracks how many lessons a chapter delete or restore touched.
	CascadedLessons = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "content",
			Name:      "cascaded_lessons",
			Help:      "Number of lessons archived or restored by a chapter cascade",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"direction"},
	)

	// RelayedEventsTotal counts outbox events moved to Pub/Sub.
	// Labels: result (published, failed, dropped, dead_lettered)
	RelayedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Total number of content events relayed from the outbox",
		},
		[]string{"result"},
	)
)

// ObserveOperation records the outcome of one service call.
func ObserveOperation(entity, operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperr.KindOf(err))
	}
	OperationsTotal.WithLabelValues(entity, operation, result).Inc()
}
