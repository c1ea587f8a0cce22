// Package metrics holds the process-wide prometheus collectors served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions counts admission transitions by name and outcome.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_admission_transitions_total",
		Help: "Admission state machine transitions by name and outcome",
	}, []string{"transition", "outcome"})

	// OTPEvents counts issue, verify and regenerate calls by result.
	OTPEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_otp_events_total",
		Help: "OTP engine calls by action and result",
	}, []string{"action", "result"})

	// JoinDecisions counts join-request decisions by stage.
	JoinDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_join_decisions_total",
		Help: "Join request decisions by decision and member stage",
	}, []string{"decision", "stage"})

	// PaymentEvents counts provider webhook events by type and handling result.
	PaymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_payment_events_total",
		Help: "Payment provider events by type and result",
	}, []string{"type", "result"})

	// SweepMembers counts members returned by the periodic sweeps.
	SweepMembers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_sweep_members_total",
		Help: "Members selected by the expiring and expired sweeps",
	}, []string{"sweep"})

	// UpdateLatency observes how long one Telegram update takes to handle.
	UpdateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatekeeper_update_duration_seconds",
		Help:    "Time spent handling one bot update",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Outcome labels an error as ok or failed.
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// ObserveSince records the time elapsed from start under kind.
func ObserveSince(kind string, start time.Time) {
	UpdateLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
