package billing

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidSignature is returned by VerifyWebhook when the payload was not
// signed with the configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event types the ledger reacts to. Other provider events are acknowledged
// and ignored.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// BillingReasonSubscriptionCreate marks the first invoice of a subscription,
// already covered by the checkout event.
const BillingReasonSubscriptionCreate = "subscription_create"

// Gateway is the payment provider port.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*SessionResponse, error)
	CreatePortal(ctx context.Context, req PortalRequest) (*SessionResponse, error)
	// VerifyWebhook checks the signature and normalizes the event. Amounts are
	// in the smallest currency unit.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type CheckoutRequest struct {
	UserID      int64
	CustomerRef string
}

type PortalRequest struct {
	CustomerRef string
}

type SessionResponse struct {
	SessionID string
	URL       string
}

// WebhookEvent is a provider event reduced to the fields the ledger needs.
type WebhookEvent struct {
	ID              string
	Type            string
	UserID          int64
	CustomerRef     string
	SubscriptionRef string
	PaymentRef      string
	AmountCents     int64
	Currency        string
	BillingReason   string
	PeriodEnd       *time.Time
}
