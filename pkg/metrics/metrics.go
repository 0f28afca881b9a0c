package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application metrics. Every method is safe to call on a
// nil *Collector so packages can run without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Irradiation Metrics
	ProviderRequestsTotal *prometheus.CounterVec
	ProviderDuration      *prometheus.HistogramVec
	CacheLookupsTotal     *prometheus.CounterVec
	BulkItemsTotal        *prometheus.CounterVec

	// Analysis Metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Database Metrics
	DBQueryDuration *prometheus.HistogramVec
	DBErrorsTotal   *prometheus.CounterVec
}

// NewCollector creates a new metrics collector on its own registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"endpoint"},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "irradiation_provider_requests_total",
				Help:      "Total number of irradiation provider calls by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "irradiation_provider_duration_seconds",
				Help:      "Irradiation provider call duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"source"},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "irradiation_cache_lookups_total",
				Help:      "Total number of irradiation cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss", "error"
		),

		BulkItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "irradiation_bulk_items_total",
				Help:      "Total number of bulk resolution items by outcome",
			},
			[]string{"outcome"},
		),

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of analyses by outcome",
			},
			[]string{"outcome"},
		),

		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of a full analysis in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20},
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"query_type"},
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by query type",
			},
			[]string{"query_type"},
		),
	}
}

// Registry returns the registry every metric is registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordAPIRequest records one handled API request.
func (c *Collector) RecordAPIRequest(endpoint, method, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordProvider records one irradiation provider call.
func (c *Collector) RecordProvider(source, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ProviderRequestsTotal.WithLabelValues(source, outcome).Inc()
	c.ProviderDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit, miss or error.
func (c *Collector) RecordCacheLookup(result string) {
	if c == nil {
		return
	}
	c.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordBulkItem records the outcome of one bulk resolution item.
func (c *Collector) RecordBulkItem(outcome string) {
	if c == nil {
		return
	}
	c.BulkItemsTotal.WithLabelValues(outcome).Inc()
}

// RecordAnalysis records a finished analysis.
func (c *Collector) RecordAnalysis(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.AnalysesTotal.WithLabelValues(outcome).Inc()
	c.AnalysisDuration.Observe(d.Seconds())
}

// RecordDBQuery records a database call and whether it failed.
func (c *Collector) RecordDBQuery(queryType string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.DBQueryDuration.WithLabelValues(queryType).Observe(d.Seconds())
	if err != nil {
		c.DBErrorsTotal.WithLabelValues(queryType).Inc()
	}
}
