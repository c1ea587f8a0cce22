package ticket

import "context"

type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	Update(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id uint) (*Ticket, error)
	// ListOpen is ordered critical first, then by creation time.
	ListOpen(ctx context.Context) ([]*Ticket, error)
	CountOpen(ctx context.Context) (int64, error)
}
