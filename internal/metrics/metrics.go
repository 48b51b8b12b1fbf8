// Package metrics exposes Prometheus metrics for index runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Entry outcomes
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	entriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileindex_entries_total",
			Help: "Directory entries handled by the indexer",
		},
		[]string{"kind", "outcome"},
	)

	bytesIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileindex_bytes_indexed_total",
			Help: "Bytes of regular files classified",
		},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileindex_failures_total",
			Help: "Per-entry failures by error kind",
		},
		[]string{"kind"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileindex_runs_total",
			Help: "Index runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileindex_run_duration_seconds",
			Help:    "Index run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	storeBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileindex_store_batch_duration_seconds",
			Help:    "Time to write one batch of hard file rows",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Handler returns the Prometheus metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEntry counts one entry by kind and outcome.
func RecordEntry(kind, outcome string) {
	entriesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordBytes adds classified bytes.
func RecordBytes(n int64) {
	if n > 0 {
		bytesIndexed.Add(float64(n))
	}
}

// RecordFailure counts one per-entry failure.
func RecordFailure(kind string) {
	failuresTotal.WithLabelValues(kind).Inc()
}

// RecordRun records a finished run.
func RecordRun(wipe bool, success bool, duration time.Duration) {
	mode := "incremental"
	if wipe {
		mode = "wipe"
	}
	result := "success"
	if !success {
		result = "error"
	}
	runsTotal.WithLabelValues(mode, result).Inc()
	runDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStoreBatch records how long one hard file batch took to commit.
func RecordStoreBatch(duration time.Duration) {
	storeBatchDuration.Observe(duration.Seconds())
}
