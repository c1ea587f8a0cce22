package models

import "time"

// ProcessedPaymentEventModel is the idempotency ledger for provider webhooks.
type ProcessedPaymentEventModel struct {
	EventID     string    `gorm:"primaryKey;size:255"`
	EventType   string    `gorm:"size:64;not null"`
	ProcessedAt time.Time `gorm:"not null"`
}

func (ProcessedPaymentEventModel) TableName() string {
	return "processed_payment_events"
}

type PaymentModel struct {
	ID                uint   `gorm:"primaryKey"`
	UserID            int64  `gorm:"not null;index"`
	ProviderPaymentID string `gorm:"size:255;not null;uniqueIndex"`
	AmountCents       int64  `gorm:"not null"`
	Currency          string `gorm:"size:8;not null"`
	Status            string `gorm:"size:16;not null;index"`
	Kind              string `gorm:"size:16;not null"`
	CreatedAt         time.Time
}

func (PaymentModel) TableName() string {
	return "payments"
}
