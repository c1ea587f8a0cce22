package notification

import (
	"context"
	"time"
)

// Notifier delivers outcomes to members and staff. Implementations must not
// be called before the state change they describe has committed.
type Notifier interface {
	// NotifyAccessRequested alerts every admin that a member is waiting.
	NotifyAccessRequested(ctx context.Context, cmd AccessRequestedCommand) error

	// NotifyDecision tells the member the outcome of an admin decision.
	NotifyDecision(ctx context.Context, cmd DecisionCommand) error

	// NotifyConsentConfirmed tells the member the signature was recorded.
	NotifyConsentConfirmed(ctx context.Context, cmd ConsentConfirmedCommand) error

	// NotifySubscription covers activation, renewal, reminders, expiry,
	// cancellation and failed payments.
	NotifySubscription(ctx context.Context, cmd SubscriptionCommand) error

	// NotifyJoinDeclined explains to the member why a join request was declined.
	NotifyJoinDeclined(ctx context.Context, cmd JoinDeclinedCommand) error

	// NotifyTicketOpened alerts staff about a new support ticket.
	NotifyTicketOpened(ctx context.Context, cmd TicketOpenedCommand) error
}

type AccessRequestedCommand struct {
	UserID      int64
	Username    string
	DisplayName string
	RequestedAt time.Time
}

type Decision string

const (
	DecisionApproved     Decision = "approved"
	DecisionRejected     Decision = "rejected"
	DecisionReconsidered Decision = "reconsidered"
)

type DecisionCommand struct {
	UserID   int64
	Decision Decision
	AdminID  int64
	At       time.Time
}

type ConsentConfirmedCommand struct {
	UserID          int64
	ConsentID       string
	DocumentVersion string
	DocumentHash    string
	ConfirmedAt     time.Time
}

type SubscriptionEvent string

const (
	SubscriptionActivated     SubscriptionEvent = "activated"
	SubscriptionRenewed       SubscriptionEvent = "renewed"
	SubscriptionExpiring      SubscriptionEvent = "expiring"
	SubscriptionExpired       SubscriptionEvent = "expired"
	SubscriptionCancelled     SubscriptionEvent = "cancelled"
	SubscriptionPaymentFailed SubscriptionEvent = "payment_failed"
)

type SubscriptionCommand struct {
	UserID      int64
	DisplayName string
	Event       SubscriptionEvent
	ActiveUntil *time.Time
	AmountCents int64
	Currency    string
}

type JoinDeclinedCommand struct {
	UserID int64
	ChatID int64
	Reason string
}

type TicketOpenedCommand struct {
	TicketID    uint
	UserID      int64
	DisplayName string
	Category    string
	Priority    string
	Description string
	CreatedAt   time.Time
}
