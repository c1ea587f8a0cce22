package payment

import (
	"context"
	"time"
)

// EventLog deduplicates provider webhook deliveries.
type EventLog interface {
	// MarkProcessed records eventID and reports false when it was already
	// recorded. It must run in the same transaction as the event's effect.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

type Repository interface {
	// Record is idempotent on the provider payment id.
	Record(ctx context.Context, p *Payment) error
	ListByUser(ctx context.Context, userID int64) ([]*Payment, error)
	SumSucceeded(ctx context.Context) (int64, error)
	// SumSucceededSince totals succeeded payments created at or after since.
	SumSucceededSince(ctx context.Context, since time.Time) (int64, error)
}
