// Package otp issues and verifies the one-time codes members type to sign the
// consent document. Every call leaves an audit entry.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/gatekeeper/internal/domain/audit"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
	"github.com/orris-inc/gatekeeper/internal/shared/db"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/metrics"
)

// ConfirmHook runs inside the verification transaction after the record is
// confirmed. Returning an error rolls the confirmation back.
type ConfirmHook func(ctx context.Context, rec *consent.Record) error

type Config struct {
	Policy          consent.Policy
	DocumentVersion string
}

type Engine struct {
	tm              *db.TransactionManager
	consents        consent.Repository
	audit           audit.Repository
	policy          consent.Policy
	documentVersion string
	generate        consent.CodeGenerator
	newID           func() string
	clock           biztime.Clock
	logger          logger.Interface
}

func NewEngine(
	tm *db.TransactionManager,
	consents consent.Repository,
	auditRepo audit.Repository,
	cfg Config,
	logger logger.Interface,
) *Engine {
	policy := cfg.Policy
	if policy.TTL <= 0 || policy.MaxAttempts <= 0 {
		policy = consent.DefaultPolicy()
	}
	return &Engine{
		tm:              tm,
		consents:        consents,
		audit:           auditRepo,
		policy:          policy,
		documentVersion: cfg.DocumentVersion,
		generate:        consent.RandomCode,
		newID:           uuid.NewString,
		clock:           biztime.NowUTC,
		logger:          logger,
	}
}

// WithClock replaces the time source.
func (e *Engine) WithClock(clock biztime.Clock) *Engine {
	e.clock = clock
	return e
}

// WithCodeGenerator replaces the random code source.
func (e *Engine) WithCodeGenerator(gen consent.CodeGenerator) *Engine {
	e.generate = gen
	return e
}

func (e *Engine) Policy() consent.Policy {
	return e.policy
}

// ExpiresAt is when the current code of rec stops being accepted.
func (e *Engine) ExpiresAt(rec *consent.Record) time.Time {
	return rec.OTPGeneratedAt().Add(e.policy.TTL)
}

// Issue purges any unconfirmed record of the member and stores a new one
// carrying a fresh code. The code is returned for delivery to the member.
func (e *Engine) Issue(ctx context.Context, userID int64, a consent.Anagraphic) (*consent.Record, string, error) {
	code, err := e.generate()
	if err != nil {
		return nil, "", err
	}
	now := e.clock()

	var rec *consent.Record
	err = e.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		purged, err := e.consents.DeletePending(txCtx, userID)
		if err != nil {
			return err
		}
		rec, err = consent.NewRecord(e.newID(), userID, a, code, e.documentVersion, now)
		if err != nil {
			return err
		}
		if err := e.consents.Create(txCtx, rec); err != nil {
			return err
		}
		return e.appendAudit(txCtx, userID, audit.ActionOTPIssue, true, "", map[string]any{
			"consent_id":       rec.ConsentID(),
			"document_version": rec.DocumentVersion(),
			"document_hash":    rec.DocumentHash(),
			"superseded":       purged,
		}, now)
	})
	metrics.OTPEvents.WithLabelValues("issue", metrics.Outcome(err)).Inc()
	if err != nil {
		e.logger.Errorw("failed to issue otp", "user_id", userID, "error", err)
		return nil, "", fmt.Errorf("failed to issue otp: %w", err)
	}

	e.logger.Infow("otp issued", "user_id", userID, "consent_id", rec.ConsentID())
	return rec, code, nil
}

// Verify checks input against the member's pending code. Failures other than
// persistence errors are one of consent.ErrNoPendingConsent, ErrExpired,
// ErrTooManyAttempts or a *consent.WrongCodeError. The attempt counter and the
// audit entry are committed even when verification fails.
func (e *Engine) Verify(ctx context.Context, userID int64, input string, onConfirmed ConfirmHook) (*consent.Record, error) {
	now := e.clock()

	var (
		rec       *consent.Record
		verifyErr error
	)
	err := e.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = e.consents.GetPending(txCtx, userID)
		if errors.Is(err, consent.ErrNoPendingConsent) {
			verifyErr = err
			return e.appendAudit(txCtx, userID, audit.ActionOTPVerify, false, input, map[string]any{"reason": "no_pending"}, now)
		}
		if err != nil {
			return err
		}

		attemptsBefore := rec.OTPAttempts()
		verifyErr = rec.Verify(input, now, e.policy)
		consumed := rec.OTPAttempts() != attemptsBefore

		if consumed {
			if err := e.consents.Update(txCtx, rec); err != nil {
				return err
			}
		}
		if verifyErr == nil && onConfirmed != nil {
			if err := onConfirmed(txCtx, rec); err != nil {
				return err
			}
		}

		details := map[string]any{
			"consent_id": rec.ConsentID(),
			"attempts":   rec.OTPAttempts(),
		}
		if verifyErr != nil {
			details["reason"] = verifyReason(verifyErr)
		}
		return e.appendAudit(txCtx, userID, audit.ActionOTPVerify, verifyErr == nil, input, details, now)
	})
	if err != nil {
		metrics.OTPEvents.WithLabelValues("verify", "error").Inc()
		e.logger.Errorw("failed to verify otp", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}

	metrics.OTPEvents.WithLabelValues("verify", verifyReason(verifyErr)).Inc()
	if verifyErr != nil {
		e.logger.Infow("otp verification failed", "user_id", userID, "reason", verifyReason(verifyErr))
		return nil, verifyErr
	}

	e.logger.Infow("otp verified", "user_id", userID, "consent_id", rec.ConsentID())
	return rec, nil
}

// Regenerate replaces the code of the pending record in place. The consent id
// and document fingerprint are kept.
func (e *Engine) Regenerate(ctx context.Context, userID int64) (*consent.Record, string, error) {
	code, err := e.generate()
	if err != nil {
		return nil, "", err
	}
	now := e.clock()

	var rec *consent.Record
	err = e.tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = e.consents.GetPending(txCtx, userID)
		if err != nil {
			return err
		}
		if err := rec.Regenerate(code, now); err != nil {
			return err
		}
		if err := e.consents.Update(txCtx, rec); err != nil {
			return err
		}
		return e.appendAudit(txCtx, userID, audit.ActionOTPRegenerate, true, "", map[string]any{
			"consent_id": rec.ConsentID(),
		}, now)
	})
	metrics.OTPEvents.WithLabelValues("regenerate", metrics.Outcome(err)).Inc()
	if err != nil {
		if errors.Is(err, consent.ErrNoPendingConsent) {
			return nil, "", err
		}
		e.logger.Errorw("failed to regenerate otp", "user_id", userID, "error", err)
		return nil, "", fmt.Errorf("failed to regenerate otp: %w", err)
	}

	e.logger.Infow("otp regenerated", "user_id", userID, "consent_id", rec.ConsentID())
	return rec, code, nil
}

// maxAuditedCodeRunes bounds what a failed verification stores of the input.
const maxAuditedCodeRunes = 16

func (e *Engine) appendAudit(ctx context.Context, userID int64, action audit.Action, success bool, code string, details map[string]any, now time.Time) error {
	if r := []rune(code); len(r) > maxAuditedCodeRunes {
		code = string(r[:maxAuditedCodeRunes])
	}
	return e.audit.Append(ctx, &audit.Entry{
		UserID:        userID,
		Action:        action,
		Success:       success,
		AttemptedCode: code,
		Details:       details,
		CreatedAt:     now,
	})
}

func verifyReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, consent.ErrNoPendingConsent):
		return "no_pending"
	case errors.Is(err, consent.ErrExpired):
		return "expired"
	case errors.Is(err, consent.ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, consent.ErrWrongCode):
		return "wrong_code"
	default:
		return "error"
	}
}
