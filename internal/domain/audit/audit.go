package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionOTPIssue              Action = "otp_issue"
	ActionOTPVerify             Action = "otp_verify"
	ActionOTPRegenerate         Action = "otp_regenerate"
	ActionAccessRequested       Action = "access_requested"
	ActionApproved              Action = "approved"
	ActionRejected              Action = "rejected"
	ActionReconsidered          Action = "reconsidered"
	ActionConsentSubmitted      Action = "consent_submitted"
	ActionConsentRestarted      Action = "consent_restarted"
	ActionConsentConfirmed      Action = "consent_confirmed"
	ActionSubscriptionActivated Action = "subscription_activated"
	ActionSubscriptionExpired   Action = "subscription_expired"
	ActionSubscriptionCancelled Action = "subscription_cancelled"
	ActionPaymentFailed         Action = "payment_failed"
	ActionAdminAdded            Action = "admin_added"
	ActionAdminRemoved          Action = "admin_removed"
	ActionJoinDecided           Action = "join_decided"
)

// Entry is an append-only log line. Entries are never updated or deleted.
type Entry struct {
	ID            uint
	UserID        int64
	ActorID       *int64
	Action        Action
	Success       bool
	AttemptedCode string
	Details       map[string]any
	CreatedAt     time.Time
}

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Entry, error)
}
