package consent

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// Update persists attempt counters, regenerated codes and confirmation
	// with optimistic locking. A lost race yields ErrConcurrentUpdate.
	Update(ctx context.Context, r *Record) error
	// GetPending returns the most recent unconfirmed record or ErrNoPendingConsent.
	GetPending(ctx context.Context, userID int64) (*Record, error)
	HasPending(ctx context.Context, userID int64) (bool, error)
	// DeletePending purges unconfirmed records and returns how many were removed.
	DeletePending(ctx context.Context, userID int64) (int64, error)
	// GetConfirmed returns the confirmed record or ErrNotConfirmed.
	GetConfirmed(ctx context.Context, userID int64) (*Record, error)
}
