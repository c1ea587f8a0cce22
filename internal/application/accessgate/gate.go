// Package accessgate arbitrates join requests for protected chats. It only
// reads member state.
package accessgate

import (
	"context"
	"fmt"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

// Decline reasons, one per non-subscribed stage.
const (
	ReasonNeverRequested = "never requested access"
	ReasonAwaitingAdmin  = "awaiting admin decision"
	ReasonDenied         = "request denied"
	ReasonConsentForm    = "must complete consent form"
	ReasonVerifyOTP      = "must verify OTP"
	ReasonPayment        = "must complete payment"
)

var declineReasons = map[member.Stage]string{
	member.StageNew:                   ReasonNeverRequested,
	member.StagePending:               ReasonAwaitingAdmin,
	member.StageRejected:              ReasonDenied,
	member.StageAwaitingConsent:       ReasonConsentForm,
	member.StageConsentPendingOTP:     ReasonVerifyOTP,
	member.StageApprovedNotSubscribed: ReasonPayment,
}

// Decision is Approve, or a decline carrying the reason shown to the member.
type Decision struct {
	Approve bool
	Reason  string
	Stage   member.Stage
}

func (d Decision) String() string {
	if d.Approve {
		return "approve"
	}
	return "decline"
}

// DecisionFor maps a stage to its decision. Unknown stages are declined as
// if the member never asked.
func DecisionFor(stage member.Stage) Decision {
	if stage == member.StageSubscribed {
		return Decision{Approve: true, Stage: stage}
	}
	reason, ok := declineReasons[stage]
	if !ok {
		reason = ReasonNeverRequested
	}
	return Decision{Reason: reason, Stage: stage}
}

// StageReader derives a member's current stage.
type StageReader interface {
	Stage(ctx context.Context, userID int64) (member.Stage, error)
}

type Gate struct {
	stages StageReader
	logger logger.Interface
}

func NewGate(stages StageReader, logger logger.Interface) *Gate {
	return &Gate{stages: stages, logger: logger}
}

// Decide returns the decision for userID. A persistence failure is returned
// as an error; callers leave the join request untouched in that case.
func (g *Gate) Decide(ctx context.Context, userID int64) (Decision, error) {
	stage, err := g.stages.Stage(ctx, userID)
	if err != nil {
		g.logger.Errorw("failed to derive stage for join request", "user_id", userID, "error", err)
		return Decision{}, fmt.Errorf("failed to decide join request: %w", err)
	}
	d := DecisionFor(stage)
	metrics.JoinDecisions.WithLabelValues(d.String(), stage.String()).Inc()
	g.logger.Infow("join request decided", "user_id", userID, "stage", stage, "decision", d.String(), "reason", d.Reason)
	return d, nil
}
