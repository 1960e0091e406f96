// Package metrics exposes Prometheus instruments for cart and review operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeContended = "contended"
	OutcomeError     = "error"
)

// Metrics records operation counts and durations. A nil *Metrics is a no-op.
type Metrics struct {
	cartOps   *prometheus.CounterVec
	reviewOps *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New registers the storefront metrics on the provided registerer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_operations_total",
		Help: "Cart operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	reviewOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_review_operations_total",
		Help: "Review operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_operation_duration_seconds",
		Help:    "Duration of cart and review operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(cartOps, reviewOps, duration)
	return &Metrics{
		cartOps:   cartOps,
		reviewOps: reviewOps,
		duration:  duration,
	}
}

// CartOperation counts one cart operation with its outcome
func (m *Metrics) CartOperation(operation, outcome string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ReviewOperation counts one review operation with its outcome
func (m *Metrics) ReviewOperation(operation, outcome string) {
	if m == nil || m.reviewOps == nil {
		return
	}
	m.reviewOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long operation took
func (m *Metrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
