// Package stats reports community totals to admins and feeds the member export.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/payment"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type Authorizer interface {
	Authorize(ctx context.Context, actorID int64, perm admin.Permission) error
}

type Stats struct {
	TotalMembers        int64 `json:"total_members"`
	PendingRequests     int64 `json:"pending_requests"`
	Approved            int64 `json:"approved"`
	Consented           int64 `json:"consented"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	OpenTickets         int64 `json:"open_tickets"`
	TotalPaymentCents   int64 `json:"total_payment_cents"`
	// members who joined since the start of the business day seven days ago
	NewMembersWeek int64 `json:"new_members_week"`
	// succeeded payments since the first of the current business month
	MonthRevenueCents int64 `json:"month_revenue_cents"`
}

// MemberRow is one line of the member export.
type MemberRow struct {
	UserID             int64
	Username           string
	DisplayName        string
	Stage              member.Stage
	ApprovedAt         *time.Time
	ConsentCompletedAt *time.Time
	ActiveUntil        *time.Time
	SubscriptionStatus string
	TotalPayments      int
	CreatedAt          time.Time
}

type Service struct {
	members  member.Repository
	consents consent.Repository
	tickets  ticket.Repository
	payments payment.Repository
	roster   Authorizer
	clock    biztime.Clock
	logger   logger.Interface
}

func NewService(
	members member.Repository,
	consents consent.Repository,
	tickets ticket.Repository,
	payments payment.Repository,
	roster Authorizer,
	logger logger.Interface,
) *Service {
	return &Service{
		members:  members,
		consents: consents,
		tickets:  tickets,
		payments: payments,
		roster:   roster,
		clock:    biztime.NowUTC,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(clock biztime.Clock) *Service {
	s.clock = clock
	return s
}

// Stats returns the totals shown by /stats.
func (s *Service) Stats(ctx context.Context, actorID int64) (*Stats, error) {
	if err := s.roster.Authorize(ctx, actorID, admin.PermViewStats); err != nil {
		return nil, err
	}
	return s.Collect(ctx)
}

// Collect computes the totals without an authorization check.
func (s *Service) Collect(ctx context.Context) (*Stats, error) {
	yes := true
	pending := member.RequestStatusPending
	now := s.clock()
	today := biztime.DateOf(now)
	weekAgo := biztime.DayStart(now, -7)

	out := &Stats{}
	counts := []struct {
		dst    *int64
		filter member.CountFilter
	}{
		{&out.TotalMembers, member.CountFilter{}},
		{&out.PendingRequests, member.CountFilter{RequestStatus: &pending}},
		{&out.Approved, member.CountFilter{Approved: &yes}},
		{&out.Consented, member.CountFilter{ConsentCompleted: &yes}},
		{&out.ActiveSubscriptions, member.CountFilter{ActiveOn: &today}},
		{&out.NewMembersWeek, member.CountFilter{CreatedSince: &weekAgo}},
	}
	for _, c := range counts {
		n, err := s.members.Count(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count members: %w", err)
		}
		*c.dst = n
	}

	open, err := s.tickets.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	out.OpenTickets = open

	total, err := s.payments.SumSucceeded(ctx)
	if err != nil {
		return nil, err
	}
	out.TotalPaymentCents = total

	month, err := s.payments.SumSucceededSince(ctx, biztime.MonthStart(now))
	if err != nil {
		return nil, err
	}
	out.MonthRevenueCents = month
	return out, nil
}

// ExportMembers lists every member with a derived stage.
func (s *Service) ExportMembers(ctx context.Context, actorID int64) ([]MemberRow, error) {
	if err := s.roster.Authorize(ctx, actorID, admin.PermExportMembers); err != nil {
		return nil, err
	}
	return s.MemberRows(ctx)
}

// MemberRows builds the export without an authorization check. The CLI uses
// it directly.
func (s *Service) MemberRows(ctx context.Context) ([]MemberRow, error) {
	list, err := s.members.List(ctx, member.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	today := biztime.DateOf(s.clock())

	rows := make([]MemberRow, 0, len(list))
	for _, m := range list {
		pending := false
		if m.Approved() && !m.ConsentCompleted() {
			if pending, err = s.consents.HasPending(ctx, m.UserID()); err != nil {
				return nil, fmt.Errorf("failed to check pending consent: %w", err)
			}
		}
		rows = append(rows, MemberRow{
			UserID:             m.UserID(),
			Username:           m.Username(),
			DisplayName:        m.DisplayName(),
			Stage:              member.DeriveStage(m, pending, today),
			ApprovedAt:         m.ApprovedAt(),
			ConsentCompletedAt: m.ConsentCompletedAt(),
			ActiveUntil:        m.SubscriptionActiveUntil(),
			SubscriptionStatus: m.SubscriptionStatus().String(),
			TotalPayments:      m.TotalPayments(),
			CreatedAt:          m.CreatedAt(),
		})
	}
	s.logger.Infow("member export built", "rows", len(rows))
	return rows, nil
}
