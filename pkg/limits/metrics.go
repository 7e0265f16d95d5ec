package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics contains Prometheus metrics for the limits package.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Decisions
	requests   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	amounts    *prometheus.CounterVec

	// Failures by kind (validation, store)
	errors *prometheus.CounterVec

	// Evaluation latency
	duration prometheus.Histogram
}

// NewMetrics creates the evaluator collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadgate_load_requests_total",
				Help: "Total number of evaluated load requests by decision",
			},
			[]string{"decision"},
		),

		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadgate_load_rejections_total",
				Help: "Total number of rejected loads by violated limit",
			},
			[]string{"reason"},
		),

		amounts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadgate_load_amount_total",
				Help: "Sum of evaluated load amounts by decision",
			},
			[]string{"decision"},
		),

		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadgate_load_errors_total",
				Help: "Total number of evaluations that ended in an error",
			},
			[]string{"kind"},
		),

		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loadgate_load_evaluation_duration_seconds",
				Help:    "Duration of load evaluations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
		),
	}
}

// RecordDecision records a completed evaluation.
func (m *Metrics) RecordDecision(result *Result, amount decimal.Decimal) {
	if m == nil {
		return
	}
	decision := string(result.Decision)
	m.requests.WithLabelValues(decision).Inc()
	m.amounts.WithLabelValues(decision).Add(amount.InexactFloat64())
	if result.Decision == DecisionRejected {
		m.rejections.WithLabelValues(string(result.Reason)).Inc()
	}
}

// RecordError records an evaluation that failed with the given kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// ObserveDuration records the duration of an evaluation.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
