// Package metrics provides observability for gridload using Prometheus
// metrics. It tracks how often column writers cross into the locked
// allocation path, how long they wait for and hold the allocation lock, and
// how many grid cells were materialized.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("flush")
//	err := col.Flush()
//	metrics.ObserveFlush("list<float64>", timer.Stop(), rows, nulls, err)
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., flushes, rows materialized)
// Histogram: Distribution of values (e.g., lock wait time)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

var lockBuckets = []float64{
	1e-6, // 1μs - uncontended
	1e-5,
	1e-4,
	1e-3, // 1ms - another writer flushing
	1e-2,
	1e-1,
	1, // 1s - heavy contention
}

var (
	// Flushes counts completed flushes of column writers.
	// Labels: kind (column kind name)
	Flushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridload_flushes_total",
			Help: "Total number of column writer flushes",
		},
		[]string{"kind"},
	)

	// FlushErrors counts failed flushes by error type.
	FlushErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridload_flush_errors_total",
			Help: "Total number of failed column writer flushes",
		},
		[]string{"kind", "reason"},
	)

	// FlushDuration tracks the end-to-end duration of a flush in seconds.
	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridload_flush_duration_seconds",
			Help:    "Duration of column writer flushes",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
		[]string{"kind"},
	)

	// RowsMaterialized counts grid cells written by flushes.
	// Labels: kind, state (value or null)
	RowsMaterialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridload_rows_materialized_total",
			Help: "Total number of grid cells written",
		},
		[]string{"kind", "state"},
	)

	// LockWait tracks time spent waiting for the global allocation lock.
	LockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridload_alloc_lock_wait_seconds",
			Help:    "Time spent waiting for the allocation lock",
			Buckets: lockBuckets,
		},
	)

	// LockHold tracks time the global allocation lock is held.
	LockHold = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridload_alloc_lock_hold_seconds",
			Help:    "Time the allocation lock is held",
			Buckets: lockBuckets,
		},
	)

	// WritersCreated counts column writers handed out by split and partition.
	// Labels: origin (split or partition)
	WritersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridload_writers_created_total",
			Help: "Total number of column writers created",
		},
		[]string{"origin"},
	)

	// LoadDuration tracks the duration of complete loads.
	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridload_load_duration_seconds",
			Help:    "Duration of loads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

// ObserveFlush records the outcome of a single flush.
func ObserveFlush(kind string, d time.Duration, rows, nulls int, err error) {
	if err != nil {
		FlushErrors.WithLabelValues(kind, string(errors.TypeOf(err))).Inc()
		return
	}
	Flushes.WithLabelValues(kind).Inc()
	FlushDuration.WithLabelValues(kind).Observe(d.Seconds())
	RowsMaterialized.WithLabelValues(kind, "value").Add(float64(rows - nulls))
	RowsMaterialized.WithLabelValues(kind, "null").Add(float64(nulls))
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's name
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It can be called repeatedly.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
