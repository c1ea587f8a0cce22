package member

// Transition names an operation of the admission state machine.
type Transition string

const (
	TransitionRequestAccess  Transition = "request_access"
	TransitionApprove        Transition = "approve"
	TransitionReject         Transition = "reject"
	TransitionReconsider     Transition = "reconsider"
	TransitionSubmitConsent  Transition = "submit_consent_data"
	TransitionRestartConsent Transition = "restart_consent"
	TransitionConfirmConsent Transition = "confirm_consent"
)

var allowedFrom = map[Transition][]Stage{
	TransitionRequestAccess:  {StageNew},
	TransitionApprove:        {StagePending},
	TransitionReject:         {StagePending, StageAwaitingConsent, StageConsentPendingOTP},
	TransitionReconsider:     {StageRejected},
	TransitionSubmitConsent:  {StageAwaitingConsent},
	TransitionRestartConsent: {StageConsentPendingOTP},
	TransitionConfirmConsent: {StageConsentPendingOTP},
}

// AllowedFrom returns the stages a transition may start from.
func AllowedFrom(t Transition) []Stage {
	stages := allowedFrom[t]
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// CheckTransition returns a *TransitionError when t is not legal from stage.
func CheckTransition(t Transition, from Stage) error {
	for _, s := range allowedFrom[t] {
		if s == from {
			return nil
		}
	}
	return &TransitionError{Transition: t, From: from}
}
