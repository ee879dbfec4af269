package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotel_engine",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotel_engine",
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle transitions by source and target status.",
		},
		[]string{"from", "to"},
	)

	transitionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotel_engine",
			Name:      "booking_transition_failures_total",
			Help:      "Rejected lifecycle transitions by operation and reason.",
		},
		[]string{"op", "reason"},
	)

	sweepRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotel_engine",
			Name:      "scheduler_rows_total",
			Help:      "Rows affected by scheduler sweeps, by job.",
		},
		[]string{"job"},
	)

	sweepErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotel_engine",
			Name:      "scheduler_row_errors_total",
			Help:      "Per-row scheduler failures that were isolated, by job.",
		},
		[]string{"job"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, transitionFailures, sweepRows, sweepErrors)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncTransition records a successful lifecycle transition.
func IncTransition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

// IncTransitionFailure records a rejected transition.
func IncTransitionFailure(op, reason string) {
	transitionFailures.WithLabelValues(op, reason).Inc()
}

// AddSweepRows records rows affected by one scheduler sweep.
func AddSweepRows(job string, n int) {
	sweepRows.WithLabelValues(job).Add(float64(n))
}

// IncSweepError records one isolated per-row scheduler failure.
func IncSweepError(job string) {
	sweepErrors.WithLabelValues(job).Inc()
}
