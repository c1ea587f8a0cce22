package member

import "time"

// Stage is the derived position of a member in the admission pipeline. It is
// never persisted; every decision point recomputes it with DeriveStage.
type Stage string

const (
	StageNew                   Stage = "new"
	StagePending               Stage = "pending"
	StageRejected              Stage = "rejected"
	StageAwaitingConsent       Stage = "awaiting_consent"
	StageConsentPendingOTP     Stage = "consent_pending_otp"
	StageApprovedNotSubscribed Stage = "approved_not_subscribed"
	StageSubscribed            Stage = "subscribed"
)

// AllStages lists every stage in pipeline order.
func AllStages() []Stage {
	return []Stage{
		StageNew,
		StagePending,
		StageRejected,
		StageAwaitingConsent,
		StageConsentPendingOTP,
		StageApprovedNotSubscribed,
		StageSubscribed,
	}
}

func (s Stage) String() string {
	return string(s)
}

func (s Stage) IsValid() bool {
	for _, st := range AllStages() {
		if st == s {
			return true
		}
	}
	return false
}

// DeriveStage maps persisted flags to exactly one stage. A nil member is an
// unknown identity. hasPendingConsent tells whether an unconfirmed consent
// record exists; today must be a date value (see biztime.DateOf).
func DeriveStage(m *Member, hasPendingConsent bool, today time.Time) Stage {
	if m == nil {
		return StageNew
	}
	switch m.requestStatus {
	case RequestStatusPending:
		return StagePending
	case RequestStatusRejected:
		return StageRejected
	}
	if !m.approved {
		return StageNew
	}
	if !m.consentCompleted {
		if hasPendingConsent {
			return StageConsentPendingOTP
		}
		return StageAwaitingConsent
	}
	if m.IsSubscriptionActive(today) {
		return StageSubscribed
	}
	return StageApprovedNotSubscribed
}
