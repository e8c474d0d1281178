// Package metrics defines the Prometheus metric collectors used across the
// back-office analytics service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AnalyticsCacheHits   prometheus.Counter
	AnalyticsCacheMisses prometheus.Counter
	StoreQueryDuration   *prometheus.HistogramVec
	StoreQueryErrors     *prometheus.CounterVec
	BroadcastsTotal      *prometheus.CounterVec
	SnapshotsSavedTotal  prometheus.Counter
	CacheInvalidations   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AnalyticsCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_cache_hits_total",
				Help: "Total real-time metrics served from the in-process cache.",
			},
		),
		AnalyticsCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_cache_misses_total",
				Help: "Total real-time metrics recomputed from the transaction store.",
			},
		),
		StoreQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_query_duration_seconds",
				Help:    "Transaction store aggregate query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query"},
		),
		StoreQueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_query_errors_total",
				Help: "Total transaction store query failures by query name.",
			},
			[]string{"query"},
		),
		BroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_metrics_broadcasts_total",
				Help: "Total real-time snapshot broadcast cycles by outcome.",
			},
			[]string{"status"},
		),
		SnapshotsSavedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_snapshots_saved_total",
				Help: "Total analytics snapshots persisted to PostgreSQL.",
			},
		),
		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_cache_invalidations_total",
				Help: "Total cache clears triggered by transaction events.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnalyticsCacheHits,
		m.AnalyticsCacheMisses,
		m.StoreQueryDuration,
		m.StoreQueryErrors,
		m.BroadcastsTotal,
		m.SnapshotsSavedTotal,
		m.CacheInvalidations,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
