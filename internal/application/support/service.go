// Package support handles member tickets and their triage by admins.
package support

import (
	"context"
	"fmt"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type Authorizer interface {
	Authorize(ctx context.Context, actorID int64, perm admin.Permission) error
}

type OpenTicketCommand struct {
	UserID      int64
	Category    string
	Description string
	// Priority defaults to the category's priority when empty.
	Priority string
}

type Service struct {
	tickets ticket.Repository
	members member.Repository
	roster  Authorizer
	notify  *notification.Dispatcher
	clock   biztime.Clock
	logger  logger.Interface
}

func NewService(
	tickets ticket.Repository,
	members member.Repository,
	roster Authorizer,
	notify *notification.Dispatcher,
	logger logger.Interface,
) *Service {
	return &Service{
		tickets: tickets,
		members: members,
		roster:  roster,
		notify:  notify,
		clock:   biztime.NowUTC,
		logger:  logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(clock biztime.Clock) *Service {
	s.clock = clock
	return s
}

// Open stores a ticket and alerts the staff.
func (s *Service) Open(ctx context.Context, cmd OpenTicketCommand) (*ticket.Ticket, error) {
	category, err := ticket.NewCategory(cmd.Category)
	if err != nil {
		return nil, err
	}
	priority := category.DefaultPriority()
	if cmd.Priority != "" {
		if priority, err = ticket.NewPriority(cmd.Priority); err != nil {
			return nil, err
		}
	}

	t, err := ticket.NewTicket(cmd.UserID, category, cmd.Description, priority, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, t); err != nil {
		s.logger.Errorw("failed to create ticket", "user_id", cmd.UserID, "error", err)
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	s.logger.Infow("ticket opened", "ticket_id", t.ID(), "user_id", t.UserID(), "category", t.Category(), "priority", t.Priority())

	displayName := fmt.Sprintf("%d", cmd.UserID)
	if m, err := s.members.GetByID(ctx, cmd.UserID); err == nil {
		displayName = m.DisplayName()
	}
	alert := notification.TicketOpenedCommand{
		TicketID:    t.ID(),
		UserID:      t.UserID(),
		DisplayName: displayName,
		Category:    t.Category().String(),
		Priority:    t.Priority().String(),
		Description: t.Description(),
		CreatedAt:   t.CreatedAt(),
	}
	s.notify.Dispatch("ticket_opened", func(ctx context.Context, n notification.Notifier) error {
		return n.NotifyTicketOpened(ctx, alert)
	})
	return t, nil
}

// ListOpen returns open tickets in triage order.
func (s *Service) ListOpen(ctx context.Context, actorID int64) ([]*ticket.Ticket, error) {
	if err := s.roster.Authorize(ctx, actorID, admin.PermTriageTickets); err != nil {
		return nil, err
	}
	list, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return list, nil
}

func (s *Service) Close(ctx context.Context, ticketID uint, actorID int64) (*ticket.Ticket, error) {
	if err := s.roster.Authorize(ctx, actorID, admin.PermTriageTickets); err != nil {
		return nil, err
	}
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := t.Close(actorID, s.clock()); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to close ticket: %w", err)
	}
	s.logger.Infow("ticket closed", "ticket_id", ticketID, "actor_id", actorID)
	return t, nil
}
