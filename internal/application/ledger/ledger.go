// Package ledger tracks paid periods. It is driven by verified payment events
// and by the daily sweeps; nothing else moves a subscription end date.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/payment"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

const DefaultPeriodDays = 30

// Event identifies one provider delivery. ID is the deduplication key.
type Event struct {
	ID   string
	Type string
}

// Activation is a successful charge for a member. UserID wins over
// CustomerRef when both are set.
type Activation struct {
	Event           Event
	UserID          int64
	CustomerRef     string
	SubscriptionRef string
	PaymentRef      string
	AmountCents     int64
	Currency        string
	// PeriodEnd overrides the configured period length. It never moves an
	// existing end date backward.
	PeriodEnd *time.Time
}

// FailedPayment is a declined renewal charge.
type FailedPayment struct {
	Event       Event
	UserID      int64
	CustomerRef string
	PaymentRef  string
	AmountCents int64
	Currency    string
}

// Result describes what an event did. Duplicate deliveries leave Member nil.
type Result struct {
	Duplicate bool
	Member    *member.Member
	Renewal   bool
}

type Ledger struct {
	tm         *db.TransactionManager
	members    member.Repository
	payments   payment.Repository
	events     payment.EventLog
	audit      audit.Repository
	notify     *notification.Dispatcher
	periodDays int
	currency   string
	clock      biztime.Clock
	logger     logger.Interface
}

func NewLedger(
	tm *db.TransactionManager,
	members member.Repository,
	payments payment.Repository,
	events payment.EventLog,
	auditRepo audit.Repository,
	notify *notification.Dispatcher,
	periodDays int,
	currency string,
	logger logger.Interface,
) *Ledger {
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	return &Ledger{
		tm:         tm,
		members:    members,
		payments:   payments,
		events:     events,
		audit:      auditRepo,
		notify:     notify,
		periodDays: periodDays,
		currency:   currency,
		clock:      biztime.NowUTC,
		logger:     logger,
	}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(clock biztime.Clock) *Ledger {
	l.clock = clock
	return l
}

func (l *Ledger) PeriodDays() int {
	return l.periodDays
}

func (l *Ledger) today() time.Time {
	return biztime.DateOf(l.clock())
}

// once records ev and runs fn in the same transaction. A replayed event
// reports duplicate and skips fn.
func (l *Ledger) once(ctx context.Context, ev Event, fn func(txCtx context.Context) error) (bool, error) {
	if ev.ID == "" {
		return false, fmt.Errorf("payment event id is required")
	}
	duplicate := false
	err := l.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		fresh, err := l.events.MarkProcessed(txCtx, ev.ID, ev.Type)
		if err != nil {
			return err
		}
		if !fresh {
			duplicate = true
			return nil
		}
		return fn(txCtx)
	})
	if duplicate {
		l.logger.Infow("payment event already processed", "event_id", ev.ID, "event_type", ev.Type)
	}
	return duplicate, err
}

func (l *Ledger) resolve(ctx context.Context, userID int64, customerRef string) (*member.Member, error) {
	if userID > 0 {
		return l.members.GetByID(ctx, userID)
	}
	if customerRef != "" {
		return l.members.GetByCustomerRef(ctx, customerRef)
	}
	return nil, member.ErrMemberNotFound
}

// RecordActivation extends the member's paid period. The new end date is
// counted from the later of today and the current end date.
func (l *Ledger) RecordActivation(ctx context.Context, a Activation) (*Result, error) {
	now := l.clock()
	today := biztime.DateOf(now)
	res := &Result{}

	dup, err := l.once(ctx, a.Event, func(txCtx context.Context) error {
		m, err := l.resolve(txCtx, a.UserID, a.CustomerRef)
		if err != nil {
			return err
		}

		start := today
		if end := m.SubscriptionActiveUntil(); end != nil {
			start = biztime.MaxDate(today, *end)
		}
		until := biztime.AddDays(start, l.periodDays)
		if a.PeriodEnd != nil {
			until = biztime.MaxDate(start, biztime.DateOf(*a.PeriodEnd))
		}

		res.Renewal = m.TotalPayments() > 0
		m.ActivateSubscription(until, a.CustomerRef, a.SubscriptionRef, now)
		if err := l.members.Update(txCtx, m); err != nil {
			return err
		}

		kind := payment.KindInitial
		if res.Renewal {
			kind = payment.KindRenewal
		}
		if a.PaymentRef != "" {
			p, err := payment.NewPayment(m.UserID(), a.PaymentRef, a.AmountCents, l.currencyOr(a.Currency), payment.StatusSucceeded, kind, now)
			if err != nil {
				return err
			}
			if err := l.payments.Record(txCtx, p); err != nil {
				return err
			}
		}

		res.Member = m
		return l.audit.Append(txCtx, &audit.Entry{
			UserID:  m.UserID(),
			Action:  audit.ActionSubscriptionActivated,
			Success: true,
			Details: map[string]any{
				"event_id":     a.Event.ID,
				"active_until": until.Format(biztime.ISODateLayout),
				"amount_cents": a.AmountCents,
				"renewal":      res.Renewal,
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		l.logger.Errorw("failed to record activation", "event_id", a.Event.ID, "user_id", a.UserID, "error", err)
		return nil, fmt.Errorf("failed to record activation: %w", err)
	}
	if dup {
		res.Duplicate = true
		return res, nil
	}

	m := res.Member
	l.logger.Infow("subscription activated", "user_id", m.UserID(), "active_until", m.SubscriptionActiveUntil(), "renewal", res.Renewal)
	event := notification.SubscriptionActivated
	if res.Renewal {
		event = notification.SubscriptionRenewed
	}
	l.dispatch(m, event, a.AmountCents, l.currencyOr(a.Currency))
	return res, nil
}

// MarkCancelled records that the provider stopped renewing. The member keeps
// access until the paid end date.
func (l *Ledger) MarkCancelled(ctx context.Context, ev Event, customerRef string) (*Result, error) {
	now := l.clock()
	res := &Result{}
	changed := false

	dup, err := l.once(ctx, ev, func(txCtx context.Context) error {
		m, err := l.resolve(txCtx, 0, customerRef)
		if err != nil {
			return err
		}
		res.Member = m
		if !m.CancelSubscription(now) {
			return nil
		}
		changed = true
		if err := l.members.Update(txCtx, m); err != nil {
			return err
		}
		return l.audit.Append(txCtx, &audit.Entry{
			UserID:    m.UserID(),
			Action:    audit.ActionSubscriptionCancelled,
			Success:   true,
			Details:   map[string]any{"event_id": ev.ID},
			CreatedAt: now,
		})
	})
	if err != nil {
		l.logger.Errorw("failed to cancel subscription", "event_id", ev.ID, "customer_ref", customerRef, "error", err)
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if dup {
		res.Duplicate = true
		return res, nil
	}
	if changed {
		l.logger.Infow("subscription cancelled", "user_id", res.Member.UserID(), "active_until", res.Member.SubscriptionActiveUntil())
		l.dispatch(res.Member, notification.SubscriptionCancelled, 0, "")
	}
	return res, nil
}

// RecordFailedPayment keeps the failed charge for support and warns the member.
func (l *Ledger) RecordFailedPayment(ctx context.Context, f FailedPayment) (*Result, error) {
	now := l.clock()
	res := &Result{}

	dup, err := l.once(ctx, f.Event, func(txCtx context.Context) error {
		m, err := l.resolve(txCtx, f.UserID, f.CustomerRef)
		if err != nil {
			return err
		}
		res.Member = m
		if f.PaymentRef != "" {
			p, err := payment.NewPayment(m.UserID(), f.PaymentRef, f.AmountCents, l.currencyOr(f.Currency), payment.StatusFailed, payment.KindRenewal, now)
			if err != nil {
				return err
			}
			if err := l.payments.Record(txCtx, p); err != nil {
				return err
			}
		}
		return l.audit.Append(txCtx, &audit.Entry{
			UserID:    m.UserID(),
			Action:    audit.ActionPaymentFailed,
			Success:   false,
			Details:   map[string]any{"event_id": f.Event.ID, "amount_cents": f.AmountCents},
			CreatedAt: now,
		})
	})
	if err != nil {
		l.logger.Errorw("failed to record failed payment", "event_id", f.Event.ID, "error", err)
		return nil, fmt.Errorf("failed to record failed payment: %w", err)
	}
	if dup {
		res.Duplicate = true
		return res, nil
	}
	l.logger.Warnw("payment failed", "user_id", res.Member.UserID(), "amount_cents", f.AmountCents)
	l.dispatch(res.Member, notification.SubscriptionPaymentFailed, f.AmountCents, l.currencyOr(f.Currency))
	return res, nil
}

// IsActive compares dates only, so the last paid day counts in full.
func (l *Ledger) IsActive(ctx context.Context, userID int64) (bool, error) {
	m, err := l.members.GetByID(ctx, userID)
	if errors.Is(err, member.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsSubscriptionActive(l.today()), nil
}

// SweepExpiring lists members with a paid period (active or cancelled) ending within
// [today, today+withinDays].
func (l *Ledger) SweepExpiring(ctx context.Context, withinDays int) ([]*member.Member, error) {
	if withinDays < 0 {
		withinDays = 0
	}
	today := l.today()
	list, err := l.members.ListExpiring(ctx, today, biztime.AddDays(today, withinDays))
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expiring subscriptions: %w", err)
	}
	metrics.SweepMembers.WithLabelValues("expiring").Add(float64(len(list)))
	return list, nil
}

// RemindExpiring runs SweepExpiring and sends each member a reminder.
func (l *Ledger) RemindExpiring(ctx context.Context, withinDays int) ([]*member.Member, error) {
	list, err := l.SweepExpiring(ctx, withinDays)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		l.dispatch(m, notification.SubscriptionExpiring, 0, "")
	}
	l.logger.Infow("expiring sweep finished", "members", len(list), "within_days", withinDays)
	return list, nil
}

// SweepExpired moves every lapsed member out of active bookkeeping and
// notifies them. Members whose row changed since the snapshot are re-checked
// and skipped when no longer lapsed.
func (l *Ledger) SweepExpired(ctx context.Context) ([]*member.Member, error) {
	today := l.today()
	snapshot, err := l.members.ListLapsed(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired subscriptions: %w", err)
	}

	expired := make([]*member.Member, 0, len(snapshot))
	for _, candidate := range snapshot {
		m, err := l.expire(ctx, candidate.UserID(), today)
		if err != nil {
			l.logger.Warnw("skipping member in expiry sweep", "user_id", candidate.UserID(), "error", err)
			continue
		}
		if m == nil {
			continue
		}
		expired = append(expired, m)
		l.dispatch(m, notification.SubscriptionExpired, 0, "")
	}

	metrics.SweepMembers.WithLabelValues("expired").Add(float64(len(expired)))
	l.logger.Infow("expiry sweep finished", "candidates", len(snapshot), "expired", len(expired))
	return expired, nil
}

func (l *Ledger) expire(ctx context.Context, userID int64, today time.Time) (*member.Member, error) {
	now := l.clock()
	var out *member.Member
	err := l.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		m, err := l.members.GetByID(txCtx, userID)
		if err != nil {
			return err
		}
		if !m.ExpireSubscription(today, now) {
			return nil
		}
		if err := l.members.Update(txCtx, m); err != nil {
			return err
		}
		out = m
		details := map[string]any{}
		if end := m.SubscriptionActiveUntil(); end != nil {
			details["active_until"] = end.Format(biztime.ISODateLayout)
		}
		return l.audit.Append(txCtx, &audit.Entry{
			UserID:    userID,
			Action:    audit.ActionSubscriptionExpired,
			Success:   true,
			Details:   details,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) currencyOr(c string) string {
	if c != "" {
		return c
	}
	return l.currency
}

func (l *Ledger) dispatch(m *member.Member, event notification.SubscriptionEvent, amount int64, currency string) {
	cmd := notification.SubscriptionCommand{
		UserID:      m.UserID(),
		DisplayName: m.DisplayName(),
		Event:       event,
		ActiveUntil: m.SubscriptionActiveUntil(),
		AmountCents: amount,
		Currency:    currency,
	}
	l.notify.Dispatch("subscription_"+string(event), func(ctx context.Context, n notification.Notifier) error {
		return n.NotifySubscription(ctx, cmd)
	})
}
