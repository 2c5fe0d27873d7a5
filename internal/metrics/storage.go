package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Storage Prometheus metrics.
var (
	StatementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nosqlite",
			Name:      "statements_total",
			Help:      "Total number of executed statements",
		},
		[]string{"mode", "status"}, // mode: "single" / "batch"
	)

	ExecuteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nosqlite",
			Name:      "execute_duration_seconds",
			Help:      "Execute request duration in seconds, including pool wait",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	ExecuteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nosqlite",
			Name:      "execute_errors_total",
			Help:      "Total execute failures",
		},
		[]string{"error_type"},
	)

	StorageUnitsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nosqlite",
			Name:      "storage_units_open",
			Help:      "Number of open storage unit handles",
		},
	)

	PoolRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nosqlite",
			Name:      "pool_running_workers",
			Help:      "Execute pool workers currently busy",
		},
	)
)

var registerOnce sync.Once

// Register adds the HTTP and storage collectors to the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpInFlight,
			httpPayloadBytes,
			StatementsTotal,
			ExecuteDuration,
			ExecuteErrorsTotal,
			StorageUnitsOpen,
			PoolRunning,
		)
	})
}
