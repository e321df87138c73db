package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "table_queue_length",
			Help: "Current number of active entries per table",
		},
		[]string{"table_code"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_queue_operations_total",
			Help: "Total queue operations per table",
		},
		[]string{"operation", "table_code"},
	)

	gameDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_game_duration_seconds",
			Help:    "Duration of counted games",
			Buckets: prometheus.ExponentialBuckets(30, 2, 8),
		},
		[]string{"table_code"},
	)
)

// RecordOperation counts one completed queue operation.
func RecordOperation(operation, tableCode string) {
	queueOperations.WithLabelValues(operation, tableCode).Inc()
}

// SetQueueLength tracks the active queue length of a table.
func SetQueueLength(tableCode string, length int) {
	queueLength.WithLabelValues(tableCode).Set(float64(length))
}

// ObserveGameDuration records the length of a counted game.
func ObserveGameDuration(tableCode string, d time.Duration) {
	gameDuration.WithLabelValues(tableCode).Observe(d.Seconds())
}
