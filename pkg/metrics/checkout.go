package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records payment flow outcomes.
type CheckoutMetrics struct {
	started  prometheus.Counter
	outcome  *prometheus.CounterVec
	finalize prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op instance, which tests rely on.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_started_total",
		Help: "Checkout sessions opened against the payment provider.",
	})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcome_total",
		Help: "Terminal checkout outcomes by status.",
	}, []string{"status"})
	finalize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_finalize_duration_seconds",
		Help:    "Time spent finalizing an approved checkout.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(started, outcome, finalize)
	return &CheckoutMetrics{started: started, outcome: outcome, finalize: finalize}
}

// IncStarted counts a newly opened checkout session.
func (c *CheckoutMetrics) IncStarted() {
	if c == nil || c.started == nil {
		return
	}
	c.started.Inc()
}

// IncOutcome counts a terminal checkout outcome such as approved or cancelled.
func (c *CheckoutMetrics) IncOutcome(status string) {
	if c == nil || c.outcome == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	c.outcome.WithLabelValues(status).Inc()
}

// ObserveFinalize records how long the finalize step took.
func (c *CheckoutMetrics) ObserveFinalize(d time.Duration) {
	if c == nil || c.finalize == nil {
		return
	}
	c.finalize.Observe(d.Seconds())
}
