// Package observability provides metrics and tracing instrumentation.
package observability

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// PassTransitions counts gate pass state transitions by target status.
	PassTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_pass_transitions_total",
		Help: "Total number of gate pass state transitions by target status",
	}, []string{"to_status"})

	// RedemptionOutcomes counts checkpoint redemption attempts by outcome.
	// Outcomes mirror the externally visible set: admitted, denied_invalid,
	// denied_used.
	RedemptionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_redemption_outcomes_total",
		Help: "Total number of checkpoint redemption attempts by outcome",
	}, []string{"outcome"})

	// TransitionConflicts counts conditional writes that lost a race.
	TransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_transition_conflicts_total",
		Help: "Total number of conditional pass transitions that lost a race",
	})

	// ActiveWebSockets tracks currently open event-feed connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatekeeper_active_websockets",
		Help: "Number of currently open websocket event-feed connections",
	})

	// NotificationPublishFailures counts dropped best-effort notifications.
	NotificationPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_notification_publish_failures_total",
		Help: "Total number of notification publish failures by event type",
	}, []string{"event"})
)

// Redemption outcome label values.
const (
	OutcomeAdmitted      = "admitted"
	OutcomeDeniedInvalid = "denied_invalid"
	OutcomeDeniedUsed    = "denied_used"
)

// InitHTTPMetrics creates the Prometheus middleware for HTTP request metrics.
func InitHTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}
