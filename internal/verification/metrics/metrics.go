package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the check-in state machine.
type Metrics struct {
	// Sessions created
	SessionsStarted prometheus.Counter

	// Finalized sessions by decision
	SessionsFinalized *prometheus.CounterVec

	// Step processing latency by step
	StepLatency *prometheus.HistogramVec

	// Step results by step and status
	StepOutcome *prometheus.CounterVec
}

// New creates a Metrics instance with all check-in metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "presence_checkin_sessions_started_total",
			Help: "Total verification sessions created",
		}),

		SessionsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_checkin_sessions_finalized_total",
			Help: "Total verification sessions finalized by decision",
		}, []string{"decision"}), // decision: "approved", "approved_with_warnings", "rejected"

		StepLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "presence_checkin_step_duration_seconds",
			Help:    "Duration of verification step processing by step",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"step"}),

		StepOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_checkin_step_outcomes_total",
			Help: "Total verification step results by step and status",
		}, []string{"step", "status"}),
	}
}

// IncrementStarted records a newly created session.
func (m *Metrics) IncrementStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

// IncrementFinalized records a session reaching a final decision.
func (m *Metrics) IncrementFinalized(decision string) {
	if m != nil {
		m.SessionsFinalized.WithLabelValues(decision).Inc()
	}
}

// ObserveStep records one processed step.
func (m *Metrics) ObserveStep(step, status string, d time.Duration) {
	if m != nil {
		m.StepLatency.WithLabelValues(step).Observe(d.Seconds())
		m.StepOutcome.WithLabelValues(step, status).Inc()
	}
}
