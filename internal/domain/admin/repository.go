package admin

import "context"

// Repository stores the mutable part of the roster only.
type Repository interface {
	// Add reports false when the user is already present.
	Add(ctx context.Context, a *Record) (bool, error)
	// Remove reports false when the user was not present.
	Remove(ctx context.Context, userID int64) (bool, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	// List is ordered by addition time ascending.
	List(ctx context.Context) ([]*Record, error)
}
