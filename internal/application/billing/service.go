// Package billing starts checkouts and turns verified provider webhooks into
// ledger entries.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/gatekeeper/internal/application/ledger"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

var (
	ErrCannotSubscribe = errors.New("approval and consent are required before subscribing")
	ErrNoCustomer      = errors.New("no billing account for this member")
	ErrNotConfigured   = errors.New("billing is not configured")
)

// SubscribeChecker reports whether a member may start a checkout.
type SubscribeChecker interface {
	CanSubscribe(ctx context.Context, userID int64) (*member.Member, bool, error)
}

// Ledger is the part of the subscription ledger driven by webhooks.
type Ledger interface {
	RecordActivation(ctx context.Context, a ledger.Activation) (*ledger.Result, error)
	RecordFailedPayment(ctx context.Context, f ledger.FailedPayment) (*ledger.Result, error)
	MarkCancelled(ctx context.Context, ev ledger.Event, customerRef string) (*ledger.Result, error)
}

type Service struct {
	gateway Gateway
	members SubscribeChecker
	ledger  Ledger
	logger  logger.Interface
}

func NewService(gateway Gateway, members SubscribeChecker, ledger Ledger, logger logger.Interface) *Service {
	return &Service{gateway: gateway, members: members, ledger: ledger, logger: logger}
}

// CreateCheckout returns the hosted checkout URL for the member.
func (s *Service) CreateCheckout(ctx context.Context, userID int64) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}
	m, ok, err := s.members.CanSubscribe(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrCannotSubscribe
	}
	resp, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{UserID: userID, CustomerRef: m.CustomerRef()})
	if err != nil {
		s.logger.Errorw("failed to create checkout session", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	s.logger.Infow("checkout session created", "user_id", userID, "session_id", resp.SessionID)
	return resp.URL, nil
}

// CreatePortal returns the self-service billing URL for a paying member.
func (s *Service) CreatePortal(ctx context.Context, userID int64) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}
	m, _, err := s.members.CanSubscribe(ctx, userID)
	if err != nil {
		return "", err
	}
	if m == nil || m.CustomerRef() == "" {
		return "", ErrNoCustomer
	}
	resp, err := s.gateway.CreatePortal(ctx, PortalRequest{CustomerRef: m.CustomerRef()})
	if err != nil {
		s.logger.Errorw("failed to create portal session", "user_id", userID, "error", err)
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return resp.URL, nil
}

// HandleWebhook verifies and applies one provider delivery. It returns
// ErrInvalidSignature for forged payloads; any other error asks the provider
// to retry. Events for members we do not know are acknowledged without being
// recorded, so the provider stops retrying but a manual resend still applies.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*ledger.Result, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	ev, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		metrics.PaymentEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		s.logger.Warnw("rejected payment webhook", "error", err)
		return nil, err
	}

	res, err := s.apply(ctx, ev)
	switch {
	case errors.Is(err, member.ErrMemberNotFound):
		metrics.PaymentEvents.WithLabelValues(ev.Type, "unknown_member").Inc()
		s.logger.Warnw("payment event for unknown member", "event_id", ev.ID, "event_type", ev.Type,
			"user_id", ev.UserID, "customer_ref", ev.CustomerRef)
		return nil, nil
	case err != nil:
		metrics.PaymentEvents.WithLabelValues(ev.Type, "failed").Inc()
		return nil, err
	case res == nil:
		metrics.PaymentEvents.WithLabelValues(ev.Type, "ignored").Inc()
		s.logger.Debugw("payment event ignored", "event_id", ev.ID, "event_type", ev.Type)
		return nil, nil
	case res.Duplicate:
		metrics.PaymentEvents.WithLabelValues(ev.Type, "duplicate").Inc()
		return res, nil
	default:
		metrics.PaymentEvents.WithLabelValues(ev.Type, "ok").Inc()
		return res, nil
	}
}

func (s *Service) apply(ctx context.Context, ev *WebhookEvent) (*ledger.Result, error) {
	event := ledger.Event{ID: ev.ID, Type: ev.Type}

	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.UserID <= 0 {
			return nil, member.ErrMemberNotFound
		}
		return s.ledger.RecordActivation(ctx, ledger.Activation{
			Event:           event,
			UserID:          ev.UserID,
			CustomerRef:     ev.CustomerRef,
			SubscriptionRef: ev.SubscriptionRef,
			PaymentRef:      ev.PaymentRef,
			AmountCents:     ev.AmountCents,
			Currency:        ev.Currency,
		})

	case EventInvoicePaid:
		if ev.SubscriptionRef == "" || ev.BillingReason == BillingReasonSubscriptionCreate {
			return nil, nil
		}
		return s.ledger.RecordActivation(ctx, ledger.Activation{
			Event:           event,
			UserID:          ev.UserID,
			CustomerRef:     ev.CustomerRef,
			SubscriptionRef: ev.SubscriptionRef,
			PaymentRef:      ev.PaymentRef,
			AmountCents:     ev.AmountCents,
			Currency:        ev.Currency,
			PeriodEnd:       ev.PeriodEnd,
		})

	case EventInvoiceFailed:
		return s.ledger.RecordFailedPayment(ctx, ledger.FailedPayment{
			Event:       event,
			UserID:      ev.UserID,
			CustomerRef: ev.CustomerRef,
			PaymentRef:  ev.PaymentRef,
			AmountCents: ev.AmountCents,
			Currency:    ev.Currency,
		})

	case EventSubscriptionDeleted:
		return s.ledger.MarkCancelled(ctx, event, ev.CustomerRef)

	default:
		return nil, nil
	}
}
