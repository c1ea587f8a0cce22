package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/orris-inc/gatekeeper/internal/application/billing"
	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// MetadataUserID carries the Telegram user id on checkout sessions and
// subscriptions.
const MetadataUserID = "telegram_user_id"

// StripeGateway implements billing.Gateway on the Stripe API.
type StripeGateway struct {
	api    *client.API
	cfg    config.BillingConfig
	logger logger.Interface
}

var _ billing.Gateway = (*StripeGateway)(nil)

// NewStripeGateway returns nil when no secret key is configured, so billing
// stays disabled in environments without Stripe credentials.
func NewStripeGateway(cfg config.BillingConfig, logger logger.Interface) *StripeGateway {
	if cfg.StripeSecretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)
	return &StripeGateway{api: api, cfg: cfg, logger: logger}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.SessionResponse, error) {
	userID := strconv.FormatInt(req.UserID, 10)
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(g.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:               stripe.String(g.cfg.SuccessURL),
		CancelURL:                stripe.String(g.cfg.CancelURL),
		ClientReferenceID:        stripe.String(userID),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String("auto"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserID: userID},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)
	if req.CustomerRef != "" {
		params.Customer = stripe.String(req.CustomerRef)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &billing.SessionResponse{SessionID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreatePortal(ctx context.Context, req billing.PortalRequest) (*billing.SessionResponse, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(req.CustomerRef),
		ReturnURL: stripe.String(g.cfg.PortalReturnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe billing portal session: %w", err)
	}
	return &billing.SessionResponse{SessionID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*billing.WebhookEvent, error) {
	return ParseStripeEvent(payload, signature, g.cfg.WebhookSecret)
}

// ParseStripeEvent verifies a Stripe-Signature header against secret and
// extracts the fields the ledger uses.
func ParseStripeEvent(payload []byte, signature, secret string) (*billing.WebhookEvent, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", billing.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidSignature, err)
	}

	out := &billing.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.UserID = userIDFrom(cs.Metadata, cs.ClientReferenceID)
		out.PaymentRef = cs.ID
		out.AmountCents = cs.AmountTotal
		out.Currency = string(cs.Currency)
		if cs.Customer != nil {
			out.CustomerRef = cs.Customer.ID
		}
		if cs.Subscription != nil {
			out.SubscriptionRef = cs.Subscription.ID
		}

	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.PaymentRef = inv.ID
		out.AmountCents = inv.AmountPaid
		if event.Type == stripe.EventTypeInvoicePaymentFailed {
			out.AmountCents = inv.AmountDue
		}
		out.Currency = string(inv.Currency)
		out.BillingReason = string(inv.BillingReason)
		if inv.Customer != nil {
			out.CustomerRef = inv.Customer.ID
		}
		if inv.Subscription != nil {
			out.SubscriptionRef = inv.Subscription.ID
		}
		out.PeriodEnd = linePeriodEnd(inv.Lines)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.UserID = userIDFrom(sub.Metadata, "")
		out.SubscriptionRef = sub.ID
		if sub.Customer != nil {
			out.CustomerRef = sub.Customer.ID
		}
	}
	return out, nil
}

func userIDFrom(metadata map[string]string, fallback string) int64 {
	raw := metadata[MetadataUserID]
	if raw == "" {
		raw = fallback
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// linePeriodEnd returns the end of the latest billed period on the invoice.
func linePeriodEnd(lines *stripe.InvoiceLineItemList) *time.Time {
	if lines == nil {
		return nil
	}
	var latest int64
	for _, li := range lines.Data {
		if li != nil && li.Period != nil && li.Period.End > latest {
			latest = li.Period.End
		}
	}
	if latest == 0 {
		return nil
	}
	t := time.Unix(latest, 0).UTC()
	return &t
}
