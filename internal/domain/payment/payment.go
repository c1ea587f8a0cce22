package payment

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Kind string

const (
	KindInitial Kind = "initial"
	KindRenewal Kind = "renewal"
)

// Payment is one charge reported by the provider, kept for statistics and
// dispute handling.
type Payment struct {
	id                uint
	userID            int64
	providerPaymentID string
	amountCents       int64
	currency          string
	status            Status
	kind              Kind
	createdAt         time.Time
}

func NewPayment(userID int64, providerPaymentID string, amountCents int64, currency string, status Status, kind Kind, now time.Time) (*Payment, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id must be positive")
	}
	if providerPaymentID == "" {
		return nil, fmt.Errorf("provider payment id is required")
	}
	if amountCents < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	if status != StatusSucceeded && status != StatusFailed {
		return nil, fmt.Errorf("invalid payment status: %s", status)
	}
	return &Payment{
		userID:            userID,
		providerPaymentID: providerPaymentID,
		amountCents:       amountCents,
		currency:          currency,
		status:            status,
		kind:              kind,
		createdAt:         now,
	}, nil
}

func ReconstructPayment(id uint, userID int64, providerPaymentID string, amountCents int64, currency string, status Status, kind Kind, createdAt time.Time) *Payment {
	return &Payment{
		id:                id,
		userID:            userID,
		providerPaymentID: providerPaymentID,
		amountCents:       amountCents,
		currency:          currency,
		status:            status,
		kind:              kind,
		createdAt:         createdAt,
	}
}

func (p *Payment) ID() uint {
	return p.id
}

func (p *Payment) UserID() int64 {
	return p.userID
}

func (p *Payment) ProviderPaymentID() string {
	return p.providerPaymentID
}

func (p *Payment) AmountCents() int64 {
	return p.amountCents
}

func (p *Payment) Currency() string {
	return p.currency
}

func (p *Payment) Status() Status {
	return p.status
}

func (p *Payment) Kind() Kind {
	return p.kind
}

func (p *Payment) CreatedAt() time.Time {
	return p.createdAt
}
