package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for indexing and search.
// Each Metrics has its own registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       prometheus.Histogram
	SearchResultsCount  prometheus.Histogram
	DocsProcessedTotal  *prometheus.CounterVec
	IndexRunsTotal      *prometheus.CounterVec
	IndexRunDuration    prometheus.Histogram
	IndexedDocuments    prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doctext_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "doctext_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "doctext_search_results_count",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		DocsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doctext_documents_processed_total",
				Help: "Documents processed by the indexer by status (indexed, skipped, removed, failed).",
			},
			[]string{"status"},
		),
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doctext_index_runs_total",
				Help: "Index runs by outcome (complete, cancelled, error).",
			},
			[]string{"outcome"},
		),
		IndexRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "doctext_index_run_duration_seconds",
				Help:    "Duration of index runs in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "doctext_indexed_documents",
				Help: "Documents currently in the index.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doctext_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "doctext_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.DocsProcessedTotal,
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.IndexedDocuments,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search. Safe on a nil receiver.
func (m *Metrics) ObserveSearch(latency time.Duration, results int, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.SearchQueriesTotal.WithLabelValues("error").Inc()
		return
	case results == 0:
		m.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	default:
		m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	m.SearchLatency.Observe(latency.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

// IndexRun summarizes one indexer run for ObserveIndexRun.
type IndexRun struct {
	Indexed   int
	Skipped   int
	Removed   int
	Failed    int
	Duration  time.Duration
	Cancelled bool
	Err       error
}

// ObserveIndexRun records one indexer run. Safe on a nil receiver.
func (m *Metrics) ObserveIndexRun(run IndexRun) {
	if m == nil {
		return
	}
	m.DocsProcessedTotal.WithLabelValues("indexed").Add(float64(run.Indexed))
	m.DocsProcessedTotal.WithLabelValues("skipped").Add(float64(run.Skipped))
	m.DocsProcessedTotal.WithLabelValues("removed").Add(float64(run.Removed))
	m.DocsProcessedTotal.WithLabelValues("failed").Add(float64(run.Failed))

	outcome := "complete"
	switch {
	case run.Cancelled:
		outcome = "cancelled"
	case run.Err != nil:
		outcome = "error"
	}
	m.IndexRunsTotal.WithLabelValues(outcome).Inc()
	m.IndexRunDuration.Observe(run.Duration.Seconds())
}

// SetIndexedDocuments updates the index size gauge. Safe on a nil receiver.
func (m *Metrics) SetIndexedDocuments(n int) {
	if m == nil {
		return
	}
	m.IndexedDocuments.Set(float64(n))
}

// ObserveHTTP records one HTTP request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(method, path, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(latency.Seconds())
}
