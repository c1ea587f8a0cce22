package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const MaxDescriptionLength = 4000

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrAlreadyClosed  = errors.New("ticket already closed")
	ErrInvalidTicket  = errors.New("invalid ticket")
)

type Ticket struct {
	id          uint
	userID      int64
	category    Category
	description string
	priority    Priority
	status      Status
	closedBy    *int64
	closedAt    *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func NewTicket(userID int64, category Category, description string, priority Priority, now time.Time) (*Ticket, error) {
	description = strings.TrimSpace(description)
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrInvalidTicket)
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: invalid category", ErrInvalidTicket)
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: invalid priority", ErrInvalidTicket)
	}
	if len(description) < 10 {
		return nil, fmt.Errorf("%w: description must be at least 10 characters", ErrInvalidTicket)
	}
	if len(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds maximum length of %d characters", ErrInvalidTicket, MaxDescriptionLength)
	}
	return &Ticket{
		userID:      userID,
		category:    category,
		description: description,
		priority:    priority,
		status:      StatusOpen,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructTicket(
	id uint,
	userID int64,
	category Category,
	description string,
	priority Priority,
	status Status,
	closedBy *int64,
	closedAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Ticket, error) {
	if id == 0 {
		return nil, fmt.Errorf("ticket ID cannot be zero")
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("invalid category")
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("invalid priority")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status")
	}
	return &Ticket{
		id:          id,
		userID:      userID,
		category:    category,
		description: description,
		priority:    priority,
		status:      status,
		closedBy:    closedBy,
		closedAt:    closedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (t *Ticket) ID() uint {
	return t.id
}

func (t *Ticket) UserID() int64 {
	return t.userID
}

func (t *Ticket) Category() Category {
	return t.category
}

func (t *Ticket) Description() string {
	return t.description
}

func (t *Ticket) Priority() Priority {
	return t.priority
}

func (t *Ticket) Status() Status {
	return t.status
}

func (t *Ticket) ClosedBy() *int64 {
	return t.closedBy
}

func (t *Ticket) ClosedAt() *time.Time {
	return t.closedAt
}

func (t *Ticket) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Ticket) UpdatedAt() time.Time {
	return t.updatedAt
}

func (t *Ticket) SetID(id uint) error {
	if t.id != 0 {
		return fmt.Errorf("ticket ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("ticket ID cannot be zero")
	}
	t.id = id
	return nil
}

func (t *Ticket) Close(adminID int64, now time.Time) error {
	if t.status == StatusClosed {
		return ErrAlreadyClosed
	}
	t.status = StatusClosed
	t.closedBy = &adminID
	t.closedAt = &now
	t.updatedAt = now
	return nil
}

// TriageLess orders open tickets by priority, then oldest first.
func TriageLess(a, b *Ticket) bool {
	if a.priority.Rank() != b.priority.Rank() {
		return a.priority.Rank() < b.priority.Rank()
	}
	return a.createdAt.Before(b.createdAt)
}
