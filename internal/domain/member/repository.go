package member

import (
	"context"
	"time"
)

type Repository interface {
	// Upsert creates the member on first contact or refreshes display fields.
	// Admission flags are never touched.
	Upsert(ctx context.Context, m *Member) error
	// Update persists a transition using optimistic locking on version.
	// A concurrent writer yields ErrInvalidTransition.
	Update(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, userID int64) (*Member, error)
	GetByUsername(ctx context.Context, username string) (*Member, error)
	GetByCustomerRef(ctx context.Context, customerRef string) (*Member, error)
	ListByRequestStatus(ctx context.Context, status RequestStatus) ([]*Member, error)
	// ListExpiring returns active members whose end date is within [from, to].
	ListExpiring(ctx context.Context, from, to time.Time) ([]*Member, error)
	// ListLapsed returns members still booked as active or cancelled whose end
	// date is before today.
	ListLapsed(ctx context.Context, today time.Time) ([]*Member, error)
	List(ctx context.Context, filter ListFilter) ([]*Member, error)
	Count(ctx context.Context, filter CountFilter) (int64, error)
}

type ListFilter struct {
	RequestStatus *RequestStatus
	Approved      *bool
	Limit         int
}

type CountFilter struct {
	RequestStatus    *RequestStatus
	Approved         *bool
	ConsentCompleted *bool
	ActiveOn         *time.Time
	CreatedSince     *time.Time
}
