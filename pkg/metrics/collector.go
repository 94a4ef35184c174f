// Package metrics exposes Prometheus instrumentation for the client core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authorityRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authority_requests_total",
			Help: "Total number of authority calls labeled by operation and status",
		},
		[]string{"operation", "status"},
	)
	authorityRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authority_request_duration_seconds",
			Help:    "Duration of authority calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)
	votesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_rejected_total",
			Help: "Duplicate votes rejected, split by which tier caught them",
		},
		[]string{"tier"},
	)
	staleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stale_responses_discarded_total",
			Help: "Authority responses discarded because a newer snapshot was already applied",
		},
	)
	energyGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_energy",
			Help: "Energy of the authenticated user per the last authoritative snapshot",
		},
	)
	pointsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_points",
			Help: "Points of the authenticated user per the last authoritative snapshot",
		},
	)
)

// RecordAuthorityCall increments the request counter and records duration.
func RecordAuthorityCall(operation, status string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	authorityRequestsTotal.WithLabelValues(operation, status).Inc()
	authorityRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSessionTransition tracks session guard transitions.
func RecordSessionTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordVoteRejected counts a duplicate vote; tier is "cache" or
// "authority".
func RecordVoteRejected(tier string) {
	if tier == "" {
		tier = "unknown"
	}

	votesRejectedTotal.WithLabelValues(tier).Inc()
}

// RecordStaleResponse counts a discarded out-of-order authority response.
func RecordStaleResponse() {
	staleResponsesTotal.Inc()
}

// SetEconomySnapshot updates the gauges from the latest authoritative user
// snapshot.
func SetEconomySnapshot(points, energy int64) {
	pointsGauge.Set(float64(points))
	energyGauge.Set(float64(energy))
}
