// Package admission drives a member through request, admin decision and the
// consent signature. Every operation recomputes the stage from stored flags
// inside its transaction and notifies only after the commit.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/application/otp"
	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

var (
	// ErrCooldown is returned when a new code is asked for too soon.
	ErrCooldown = errors.New("a new code was issued recently")
	// ErrCannotSubscribe is returned when checkout is asked for before
	// approval and consent are both in place.
	ErrCannotSubscribe = errors.New("member cannot subscribe yet")
)

// Authorizer checks an admin permission for an actor.
type Authorizer interface {
	Authorize(ctx context.Context, actorID int64, perm admin.Permission) error
}

// CooldownStore rate-limits code regeneration per member.
type CooldownStore interface {
	Acquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error)
}

// Profile is what the messaging platform tells us about a user.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Status is a point-in-time view of a member. Member is nil for an unknown
// identity and Pending is set only in stage consent_pending_otp.
type Status struct {
	Member  *member.Member
	Stage   member.Stage
	Pending *consent.Record
}

type Service struct {
	tm          *db.TransactionManager
	members     member.Repository
	consents    consent.Repository
	audit       audit.Repository
	roster      Authorizer
	otp         *otp.Engine
	notify      *notification.Dispatcher
	cooldown    CooldownStore
	cooldownTTL time.Duration
	clock       biztime.Clock
	logger      logger.Interface
}

func NewService(
	tm *db.TransactionManager,
	members member.Repository,
	consents consent.Repository,
	auditRepo audit.Repository,
	roster Authorizer,
	otpEngine *otp.Engine,
	notify *notification.Dispatcher,
	logger logger.Interface,
) *Service {
	return &Service{
		tm:       tm,
		members:  members,
		consents: consents,
		audit:    auditRepo,
		roster:   roster,
		otp:      otpEngine,
		notify:   notify,
		clock:    biztime.NowUTC,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(clock biztime.Clock) *Service {
	s.clock = clock
	return s
}

// WithCooldown limits RegenerateCode to once per ttl per member.
func (s *Service) WithCooldown(store CooldownStore, ttl time.Duration) *Service {
	s.cooldown = store
	s.cooldownTTL = ttl
	return s
}

func (s *Service) today() time.Time {
	return biztime.DateOf(s.clock())
}

// EnsureMember registers the user on first contact and refreshes display
// fields afterwards. Admission flags are never touched here.
func (s *Service) EnsureMember(ctx context.Context, p Profile) (*member.Member, error) {
	now := s.clock()
	m, err := s.members.GetByID(ctx, p.UserID)
	switch {
	case errors.Is(err, member.ErrMemberNotFound):
		m, err = member.NewMember(p.UserID, p.Username, p.FirstName, p.LastName, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load member: %w", err)
	default:
		if !m.UpdateProfile(p.Username, p.FirstName, p.LastName, now) {
			return m, nil
		}
	}
	if err := s.members.Upsert(ctx, m); err != nil {
		s.logger.Errorw("failed to upsert member", "user_id", p.UserID, "error", err)
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return m, nil
}

func (s *Service) Member(ctx context.Context, userID int64) (*member.Member, error) {
	return s.members.GetByID(ctx, userID)
}

// ResolveUsername finds a member by @username, case-insensitively.
func (s *Service) ResolveUsername(ctx context.Context, username string) (*member.Member, error) {
	return s.members.GetByUsername(ctx, username)
}

// Status derives the member's current stage.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	m, stage, err := s.load(ctx, userID)
	if err != nil && !errors.Is(err, member.ErrMemberNotFound) {
		return nil, err
	}
	st := &Status{Member: m, Stage: stage}
	if stage == member.StageConsentPendingOTP {
		rec, err := s.consents.GetPending(ctx, userID)
		if err != nil && !errors.Is(err, consent.ErrNoPendingConsent) {
			return nil, fmt.Errorf("failed to load pending consent: %w", err)
		}
		st.Pending = rec
	}
	return st, nil
}

// Stage is Status without the extra reads.
func (s *Service) Stage(ctx context.Context, userID int64) (member.Stage, error) {
	_, stage, err := s.load(ctx, userID)
	if err != nil && !errors.Is(err, member.ErrMemberNotFound) {
		return "", err
	}
	return stage, nil
}

// load reads the member and derives its stage. An unknown member yields
// StageNew together with member.ErrMemberNotFound.
func (s *Service) load(ctx context.Context, userID int64) (*member.Member, member.Stage, error) {
	m, err := s.members.GetByID(ctx, userID)
	if errors.Is(err, member.ErrMemberNotFound) {
		return nil, member.StageNew, err
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load member: %w", err)
	}
	pending, err := s.consents.HasPending(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check pending consent: %w", err)
	}
	return m, member.DeriveStage(m, pending, s.today()), nil
}

// CanSubscribe reports whether the member may start a checkout.
func (s *Service) CanSubscribe(ctx context.Context, userID int64) (*member.Member, bool, error) {
	m, err := s.members.GetByID(ctx, userID)
	if errors.Is(err, member.ErrMemberNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load member: %w", err)
	}
	return m, m.CanSubscribe(), nil
}

func (s *Service) ListPending(ctx context.Context) ([]*member.Member, error) {
	return s.ListByRequestStatus(ctx, member.RequestStatusPending)
}

// ListByRequestStatus lists members whose access request is in rs.
func (s *Service) ListByRequestStatus(ctx context.Context, rs member.RequestStatus) ([]*member.Member, error) {
	list, err := s.members.ListByRequestStatus(ctx, rs)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", rs, err)
	}
	return list, nil
}

// transitionFunc mutates m from stage inside the transaction. It reports
// whether the member row itself changed.
type transitionFunc func(ctx context.Context, m *member.Member, from member.Stage, now time.Time) (bool, error)

// run applies one admission transition atomically with its audit entry.
func (s *Service) run(
	ctx context.Context,
	t member.Transition,
	action audit.Action,
	userID int64,
	actorID *int64,
	apply transitionFunc,
) (*member.Member, member.Stage, error) {
	now := s.clock()
	var (
		m    *member.Member
		from member.Stage
	)
	err := s.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created := false
		m, from, err = s.load(txCtx, userID)
		switch {
		case errors.Is(err, member.ErrMemberNotFound) && t == member.TransitionRequestAccess:
			// a request may arrive before any profile was stored
			if m, err = member.NewMember(userID, "", "", "", now); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		}
		changed, err := apply(txCtx, m, from, now)
		if err != nil {
			return err
		}
		switch {
		case created:
			if err := s.members.Upsert(txCtx, m); err != nil {
				return err
			}
		case changed:
			if err := s.members.Update(txCtx, m); err != nil {
				return err
			}
		}
		return s.audit.Append(txCtx, &audit.Entry{
			UserID:    userID,
			ActorID:   actorID,
			Action:    action,
			Success:   true,
			Details:   map[string]any{"from": from.String()},
			CreatedAt: now,
		})
	})
	metrics.Transitions.WithLabelValues(string(t), metrics.Outcome(err)).Inc()

	logArgs := []any{"user_id", userID, "transition", t, "from", from}
	if actorID != nil {
		logArgs = append(logArgs, "actor_id", *actorID)
	}
	switch {
	case err == nil:
		s.logger.Infow("admission transition applied", logArgs...)
		return m, from, nil
	case errors.Is(err, member.ErrInvalidTransition), errors.Is(err, member.ErrMemberNotFound):
		s.logger.Warnw("admission transition refused", append(logArgs, "error", err)...)
		return nil, from, err
	default:
		s.logger.Errorw("admission transition failed", append(logArgs, "error", err)...)
		return nil, from, fmt.Errorf("failed to %s: %w", t, err)
	}
}

// RequestAccess moves a new member to pending and alerts the admins. An
// unknown user id is registered on the spot.
func (s *Service) RequestAccess(ctx context.Context, userID int64) (*member.Member, error) {
	m, _, err := s.run(ctx, member.TransitionRequestAccess, audit.ActionAccessRequested, userID, nil,
		func(_ context.Context, m *member.Member, from member.Stage, now time.Time) (bool, error) {
			return true, m.RequestAccess(from, now)
		})
	if err != nil {
		return nil, err
	}

	cmd := notification.AccessRequestedCommand{
		UserID:      m.UserID(),
		Username:    m.Username(),
		DisplayName: m.DisplayName(),
		RequestedAt: *m.RequestedAt(),
	}
	s.notify.Dispatch("access_requested", func(ctx context.Context, n notification.Notifier) error {
		return n.NotifyAccessRequested(ctx, cmd)
	})
	return m, nil
}

func (s *Service) authorize(ctx context.Context, adminID int64, t member.Transition, userID int64) error {
	if err := s.roster.Authorize(ctx, adminID, admin.PermDecideAdmission); err != nil {
		metrics.Transitions.WithLabelValues(string(t), "denied").Inc()
		s.logger.Warnw("admission decision denied", "user_id", userID, "transition", t, "actor_id", adminID, "error", err)
		return err
	}
	return nil
}

// Approve lets a pending member proceed to the consent form.
func (s *Service) Approve(ctx context.Context, userID, adminID int64) (*member.Member, error) {
	if err := s.authorize(ctx, adminID, member.TransitionApprove, userID); err != nil {
		return nil, err
	}
	m, _, err := s.run(ctx, member.TransitionApprove, audit.ActionApproved, userID, &adminID,
		func(_ context.Context, m *member.Member, from member.Stage, now time.Time) (bool, error) {
			return true, m.Approve(from, adminID, now)
		})
	if err != nil {
		return nil, err
	}
	s.notifyDecision(m, notification.DecisionApproved, adminID)
	return m, nil
}

// Reject refuses a pending request, or revokes an approval whose consent is
// still incomplete. Any unconfirmed consent record is purged with it.
func (s *Service) Reject(ctx context.Context, userID, adminID int64) (*member.Member, error) {
	if err := s.authorize(ctx, adminID, member.TransitionReject, userID); err != nil {
		return nil, err
	}
	m, _, err := s.run(ctx, member.TransitionReject, audit.ActionRejected, userID, &adminID,
		func(txCtx context.Context, m *member.Member, from member.Stage, now time.Time) (bool, error) {
			if err := m.Reject(from, adminID, now); err != nil {
				return false, err
			}
			if from == member.StageConsentPendingOTP {
				if _, err := s.consents.DeletePending(txCtx, m.UserID()); err != nil {
					return false, err
				}
			}
			return true, nil
		})
	if err != nil {
		return nil, err
	}
	s.notifyDecision(m, notification.DecisionRejected, adminID)
	return m, nil
}

// Reconsider returns a rejected member to stage new.
func (s *Service) Reconsider(ctx context.Context, userID, adminID int64) (*member.Member, error) {
	if err := s.authorize(ctx, adminID, member.TransitionReconsider, userID); err != nil {
		return nil, err
	}
	m, _, err := s.run(ctx, member.TransitionReconsider, audit.ActionReconsidered, userID, &adminID,
		func(_ context.Context, m *member.Member, from member.Stage, now time.Time) (bool, error) {
			return true, m.Reconsider(from, now)
		})
	if err != nil {
		return nil, err
	}
	s.notifyDecision(m, notification.DecisionReconsidered, adminID)
	return m, nil
}

func (s *Service) notifyDecision(m *member.Member, d notification.Decision, adminID int64) {
	cmd := notification.DecisionCommand{UserID: m.UserID(), Decision: d, AdminID: adminID, At: m.UpdatedAt()}
	s.notify.Dispatch("decision_"+string(d), func(ctx context.Context, n notification.Notifier) error {
		return n.NotifyDecision(ctx, cmd)
	})
}

// SubmitConsent validates the anagraphic data and issues a code. Invalid data
// returns a *consent.FieldError and writes nothing.
func (s *Service) SubmitConsent(ctx context.Context, userID int64, a consent.Anagraphic) (*consent.Record, string, error) {
	valid, err := consent.NewAnagraphic(a.FullName, a.BirthDate, a.BirthPlace, a.ResidenceAddress, s.today())
	if err != nil {
		metrics.Transitions.WithLabelValues(string(member.TransitionSubmitConsent), "invalid").Inc()
		s.logger.Infow("consent data rejected", "user_id", userID, "error", err)
		return nil, "", err
	}

	var (
		rec  *consent.Record
		code string
	)
	_, _, err = s.run(ctx, member.TransitionSubmitConsent, audit.ActionConsentSubmitted, userID, nil,
		func(txCtx context.Context, _ *member.Member, from member.Stage, _ time.Time) (bool, error) {
			if err := member.CheckTransition(member.TransitionSubmitConsent, from); err != nil {
				return false, err
			}
			var err error
			rec, code, err = s.otp.Issue(txCtx, userID, valid)
			return false, err
		})
	if err != nil {
		return nil, "", err
	}
	return rec, code, nil
}

// ConfirmConsent verifies the code and, in the same transaction, marks the
// member's consent completed. OTP failures come back unwrapped.
func (s *Service) ConfirmConsent(ctx context.Context, userID int64, input string) (*consent.Record, error) {
	rec, err := s.otp.Verify(ctx, userID, input, func(txCtx context.Context, rec *consent.Record) error {
		m, err := s.members.GetByID(txCtx, userID)
		if err != nil {
			return err
		}
		now := s.clock()
		// the record being confirmed is still the pending one in this view
		from := member.DeriveStage(m, true, s.today())
		if err := m.CompleteConsent(from, now); err != nil {
			return err
		}
		if err := s.members.Update(txCtx, m); err != nil {
			return err
		}
		return s.audit.Append(txCtx, &audit.Entry{
			UserID:  userID,
			Action:  audit.ActionConsentConfirmed,
			Success: true,
			Details: map[string]any{
				"consent_id":       rec.ConsentID(),
				"document_version": rec.DocumentVersion(),
				"document_hash":    rec.DocumentHash(),
			},
			CreatedAt: now,
		})
	})
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.Transitions.WithLabelValues(string(member.TransitionConfirmConsent), outcome).Inc()
	if err != nil {
		if errors.Is(err, member.ErrInvalidTransition) {
			s.logger.Warnw("consent confirmation refused", "user_id", userID, "error", err)
		}
		return nil, err
	}

	s.logger.Infow("admission transition applied", "user_id", userID, "transition", member.TransitionConfirmConsent)
	cmd := notification.ConsentConfirmedCommand{
		UserID:          userID,
		ConsentID:       rec.ConsentID(),
		DocumentVersion: rec.DocumentVersion(),
		DocumentHash:    rec.DocumentHash(),
		ConfirmedAt:     *rec.ConfirmedAt(),
	}
	s.notify.Dispatch("consent_confirmed", func(ctx context.Context, n notification.Notifier) error {
		return n.NotifyConsentConfirmed(ctx, cmd)
	})
	return rec, nil
}

// CodeExpiresAt is when the code of rec stops being accepted.
func (s *Service) CodeExpiresAt(rec *consent.Record) time.Time {
	return s.otp.ExpiresAt(rec)
}

// RegenerateCode replaces the pending code. It returns ErrCooldown when the
// previous code was issued too recently.
func (s *Service) RegenerateCode(ctx context.Context, userID int64) (*consent.Record, string, error) {
	pending, err := s.consents.HasPending(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check pending consent: %w", err)
	}
	if !pending {
		return nil, "", consent.ErrNoPendingConsent
	}
	if s.cooldown != nil && s.cooldownTTL > 0 {
		ok, err := s.cooldown.Acquire(ctx, userID, s.cooldownTTL)
		if err != nil {
			// cooldown is best effort
			s.logger.Warnw("otp cooldown unavailable", "user_id", userID, "error", err)
		} else if !ok {
			return nil, "", ErrCooldown
		}
	}
	return s.otp.Regenerate(ctx, userID)
}

// RestartConsent drops the unconfirmed record so the member can fill the form
// again from stage awaiting_consent.
func (s *Service) RestartConsent(ctx context.Context, userID int64) error {
	_, _, err := s.run(ctx, member.TransitionRestartConsent, audit.ActionConsentRestarted, userID, nil,
		func(txCtx context.Context, _ *member.Member, from member.Stage, _ time.Time) (bool, error) {
			if err := member.CheckTransition(member.TransitionRestartConsent, from); err != nil {
				return false, err
			}
			_, err := s.consents.DeletePending(txCtx, userID)
			return false, err
		})
	return err
}
