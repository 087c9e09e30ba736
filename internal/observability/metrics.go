// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	KlineRequests  prometheus.Counter
	KlineErrors    prometheus.Counter
	KlineLatency   prometheus.Histogram
	PagesAssembled *prometheus.CounterVec
	PageErrors     *prometheus.CounterVec

	// Pipeline metrics
	PortfolioRuns   *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RunsPersisted   prometheus.Counter
	ReportsRendered prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "defi_portfolio_lab"
	}

	return &Metrics{
		KlineRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "kline_requests_total",
			Help:      "Total number of kline page requests issued",
		}),
		KlineErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "kline_errors_total",
			Help:      "Total number of failed kline page requests",
		}),
		KlineLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "kline_latency_seconds",
			Help:      "Kline request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		PagesAssembled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "pages_assembled_total",
			Help:      "Total number of day pages stitched into series by symbol",
		}, []string{"symbol"}),
		PageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembler",
			Name:      "page_errors_total",
			Help:      "Total number of day pages that failed by symbol",
		}, []string{"symbol"}),
		PortfolioRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "portfolio_runs_total",
			Help:      "Total number of portfolio computations by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Portfolio pipeline run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		RunsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_persisted_total",
			Help:      "Total number of runs written to the run store",
		}),
		ReportsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_rendered_total",
			Help:      "Total number of reports rendered",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageAssembled increments the assembled pages counter for a symbol.
func RecordPageAssembled(symbol string) {
	DefaultMetrics.PagesAssembled.WithLabelValues(symbol).Inc()
}

// RecordPageError increments the failed pages counter for a symbol.
func RecordPageError(symbol string) {
	DefaultMetrics.PageErrors.WithLabelValues(symbol).Inc()
}

// RecordKlineRequest records one kline request and its latency.
func RecordKlineRequest(seconds float64, err error) {
	DefaultMetrics.KlineRequests.Inc()
	DefaultMetrics.KlineLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.KlineErrors.Inc()
	}
}

// RecordPortfolioRun records a completed pipeline run.
func RecordPortfolioRun(status string, durationSeconds float64) {
	DefaultMetrics.PortfolioRuns.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordRunPersisted increments the persisted runs counter.
func RecordRunPersisted() {
	DefaultMetrics.RunsPersisted.Inc()
}

// RecordReportRendered increments the rendered reports counter.
func RecordReportRendered() {
	DefaultMetrics.ReportsRendered.Inc()
}
