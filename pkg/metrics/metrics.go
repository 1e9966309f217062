// Package metrics defines the Prometheus collectors for the file indexer and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance owns its registry so
// several indexers (and tests) can coexist in one process.
type Metrics struct {
	registry           *prometheus.Registry
	FilesIndexedTotal  prometheus.Counter
	FilesRemovedTotal  prometheus.Counter
	IndexFailuresTotal *prometheus.CounterVec
	BatchAbortsTotal   *prometheus.CounterVec
	SearchQueriesTotal *prometheus.CounterVec
	IndexedFiles       prometheus.Gauge
	Terms              prometheus.Gauge
	OperationDuration  *prometheus.HistogramVec
	FeedEventsDropped  prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_files_indexed_total",
				Help: "Total files successfully indexed or re-indexed.",
			},
		),
		FilesRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_files_removed_total",
				Help: "Total files removed from the index.",
			},
		),
		IndexFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_index_failures_total",
				Help: "Total failed file reads by kind (not_found, not_readable, not_text).",
			},
			[]string{"kind"},
		),
		BatchAbortsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_batch_aborts_total",
				Help: "Total aborted multi-file batches by failure policy.",
			},
			[]string{"policy"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textindex_search_queries_total",
				Help: "Total keyword searches by result type (hit, zero_result).",
			},
			[]string{"result"},
		),
		IndexedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textindex_indexed_files",
				Help: "Number of files currently indexed.",
			},
		),
		Terms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "textindex_terms",
				Help: "Number of distinct tokens currently indexed.",
			},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textindex_operation_duration_seconds",
				Help:    "Indexer operation latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		),
		FeedEventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "textindex_changefeed_events_dropped_total",
				Help: "Change feed events dropped because the buffer was full.",
			},
		),
	}

	m.registry.MustRegister(
		m.FilesIndexedTotal,
		m.FilesRemovedTotal,
		m.IndexFailuresTotal,
		m.BatchAbortsTotal,
		m.SearchQueriesTotal,
		m.IndexedFiles,
		m.Terms,
		m.OperationDuration,
		m.FeedEventsDropped,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
