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
	// Check metrics
	ChecksTotal         *prometheus.CounterVec
	SourceUnavailable   *prometheus.CounterVec
	SourceErrors        *prometheus.CounterVec
	ErrorBudgetExceeded prometheus.Counter
	OpportunitiesFound  prometheus.Counter
	DivergenceLastSeen  *prometheus.GaugeVec

	// Loop metrics
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	LoopRestarts  prometheus.Counter
	LastCycleEnd  prometheus.Gauge

	// Trade metrics
	TradesSubmitted *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_arb_monitor"
	}

	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Total number of per-token checks by result",
		}, []string{"result"}),
		SourceUnavailable: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "source_unavailable_total",
			Help:      "Total number of checks where a source reported no price",
		}, []string{"venue"}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "source_errors_total",
			Help:      "Total number of transport-level source faults by venue",
		}, []string{"venue"}),
		ErrorBudgetExceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "error_budget_exceeded_total",
			Help:      "Total number of times a symbol crossed its consecutive-error budget",
		}),
		OpportunitiesFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "opportunities_found_total",
			Help:      "Total number of divergence opportunities detected",
		}),
		DivergenceLastSeen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "divergence_last_seen_percent",
			Help:      "Most recent divergence percentage observed per symbol",
		}, []string{"symbol"}),

		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycles_total",
			Help:      "Total number of completed monitoring cycles",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "cycle_duration_seconds",
			Help:      "Monitoring cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		LoopRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "restarts_total",
			Help:      "Total number of restart transitions after a cycle-level fault",
		}),
		LastCycleEnd: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "last_cycle_end_timestamp",
			Help:      "Unix timestamp of the last completed cycle",
		}),

		TradesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "submissions_total",
			Help:      "Total number of stub trade submissions by status",
		}, []string{"status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCheck increments the per-token check counter for a result.
func RecordCheck(result string) {
	DefaultMetrics.ChecksTotal.WithLabelValues(result).Inc()
}

// RecordSourceUnavailable increments the unavailable counter for a venue.
func RecordSourceUnavailable(venue string) {
	DefaultMetrics.SourceUnavailable.WithLabelValues(venue).Inc()
}

// RecordSourceError increments the transport fault counter for a venue.
func RecordSourceError(venue string) {
	DefaultMetrics.SourceErrors.WithLabelValues(venue).Inc()
}

// RecordErrorBudgetExceeded increments the error budget counter.
func RecordErrorBudgetExceeded() {
	DefaultMetrics.ErrorBudgetExceeded.Inc()
}

// RecordOpportunity records a detected opportunity and its divergence.
func RecordOpportunity(symbol string, divergencePct float64) {
	DefaultMetrics.OpportunitiesFound.Inc()
	DefaultMetrics.DivergenceLastSeen.WithLabelValues(symbol).Set(divergencePct)
}

// RecordCycle records a completed monitoring cycle.
func RecordCycle(durationSeconds, endUnix float64) {
	DefaultMetrics.CyclesTotal.Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	DefaultMetrics.LastCycleEnd.Set(endUnix)
}

// RecordLoopRestart increments the restart transition counter.
func RecordLoopRestart() {
	DefaultMetrics.LoopRestarts.Inc()
}

// RecordTradeSubmission records a stub trade submission result.
func RecordTradeSubmission(status string) {
	DefaultMetrics.TradesSubmitted.WithLabelValues(status).Inc()
}
