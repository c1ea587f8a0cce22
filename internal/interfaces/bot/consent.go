package bot

import (
	"context"
	"errors"

	"github.com/orris-inc/gatekeeper/internal/application/admission"
	"github.com/orris-inc/gatekeeper/internal/application/consentform"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

var stepPrompts = map[consentform.Step]string{
	consentform.StepFullName:         telegram.MsgConsentAskFullName,
	consentform.StepBirthDate:        telegram.MsgConsentAskBirthDate,
	consentform.StepBirthPlace:       telegram.MsgConsentAskPlace,
	consentform.StepResidenceAddress: telegram.MsgConsentAskAddress,
}

// startConsent opens the form. A member still holding an unconfirmed record
// starts over and the old code stops working.
func (r *Router) startConsent(ctx context.Context, chatID, userID int64) error {
	st, err := r.svc.Admission.Status(ctx, userID)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}

	switch st.Stage {
	case member.StageAwaitingConsent:
	case member.StageConsentPendingOTP:
		if err := r.svc.Admission.RestartConsent(ctx, userID); err != nil {
			_ = r.reply(ctx, chatID, telegram.MsgGenericError)
			return err
		}
	case member.StageApprovedNotSubscribed, member.StageSubscribed:
		return r.reply(ctx, chatID, telegram.MsgConsentDone)
	default:
		return r.reply(ctx, chatID, telegram.MsgConsentNotAvailable)
	}

	if err := r.svc.SupportDrafts.Delete(ctx, userID); err != nil {
		r.logger.Warnw("failed to discard support draft", "user_id", userID, "error", err)
	}
	if _, err := r.svc.Form.Start(ctx, userID); err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	return r.reply(ctx, chatID, telegram.MsgConsentAskFullName)
}

func (r *Router) answerForm(ctx context.Context, chatID, userID int64, text string) error {
	d, err := r.svc.Form.Answer(ctx, userID, text)
	var fieldErr *consent.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return r.reply(ctx, chatID, telegram.FieldErrorMessage(fieldErr.Reason))
	case errors.Is(err, consentform.ErrNoDraft):
		return r.reply(ctx, chatID, telegram.MsgConsentExpiredDraft)
	case err != nil:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}

	if d.Step == consentform.StepAcceptance {
		return r.send(ctx, chatID, r.summary(d), telegram.ConsentKeyboard())
	}
	return r.reply(ctx, chatID, stepPrompts[d.Step])
}

func (r *Router) summary(d *consentform.Draft) string {
	birth := d.BirthDate
	if t, err := biztime.ParseISODate(d.BirthDate); err == nil {
		birth = biztime.FormatDate(t)
	}
	return telegram.ConsentSummary(d.FullName, birth, d.BirthPlace, d.ResidenceAddress, r.opts.DocumentHTML)
}

// acceptConsent submits a completed draft and delivers the code.
func (r *Router) acceptConsent(ctx context.Context, chatID, userID int64) error {
	d, err := r.svc.Form.Current(ctx, userID)
	if errors.Is(err, consentform.ErrNoDraft) {
		return r.reply(ctx, chatID, telegram.MsgConsentExpiredDraft)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}

	a, err := r.svc.Form.Anagraphic(d)
	if err == nil {
		var (
			rec  *consent.Record
			code string
		)
		rec, code, err = r.svc.Admission.SubmitConsent(ctx, userID, a)
		if err == nil {
			if cerr := r.svc.Form.Cancel(ctx, userID); cerr != nil {
				r.logger.Warnw("failed to discard consent draft", "user_id", userID, "error", cerr)
			}
			return r.reply(ctx, chatID, telegram.OTPMessage(code, r.svc.Admission.CodeExpiresAt(rec)))
		}
	}

	var fieldErr *consent.FieldError
	switch {
	case errors.As(err, &fieldErr):
		_ = r.svc.Form.Cancel(ctx, userID)
		return r.reply(ctx, chatID, telegram.FieldErrorMessage(fieldErr.Reason)+"\n\n"+telegram.MsgConsentDeclined)
	case errors.Is(err, consentform.ErrFormIncomplete):
		return r.reply(ctx, chatID, telegram.MsgConsentExpiredDraft)
	case errors.Is(err, member.ErrInvalidTransition):
		_ = r.svc.Form.Cancel(ctx, userID)
		return r.reply(ctx, chatID, telegram.MsgConsentNotAvailable)
	default:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
}

func (r *Router) declineConsent(ctx context.Context, chatID, userID int64) error {
	if err := r.svc.Form.Cancel(ctx, userID); err != nil {
		return err
	}
	return r.reply(ctx, chatID, telegram.MsgConsentDeclined)
}

// confirmCode verifies a typed code. The confirmation message itself is sent
// by the notifier once the signature is committed.
func (r *Router) confirmCode(ctx context.Context, chatID, userID int64, input string) error {
	_, err := r.svc.Admission.ConfirmConsent(ctx, userID, input)
	if err == nil {
		return nil
	}

	var wrong *consent.WrongCodeError
	switch {
	case errors.As(err, &wrong):
		if wrong.Remaining <= 0 {
			return r.send(ctx, chatID, telegram.WrongCodeMessage(0), telegram.NewCodeKeyboard())
		}
		return r.reply(ctx, chatID, telegram.WrongCodeMessage(wrong.Remaining))
	case errors.Is(err, consent.ErrExpired):
		return r.send(ctx, chatID, telegram.MsgOTPExpired, telegram.NewCodeKeyboard())
	case errors.Is(err, consent.ErrTooManyAttempts):
		return r.send(ctx, chatID, telegram.MsgOTPExhausted, telegram.NewCodeKeyboard())
	case errors.Is(err, consent.ErrNoPendingConsent):
		return r.reply(ctx, chatID, telegram.MsgOTPNoPending)
	case errors.Is(err, consent.ErrAlreadyConfirmed):
		return r.reply(ctx, chatID, telegram.MsgConsentDone)
	default:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
}

func (r *Router) newCode(ctx context.Context, chatID, userID int64) error {
	rec, code, err := r.svc.Admission.RegenerateCode(ctx, userID)
	switch {
	case err == nil:
		return r.reply(ctx, chatID, telegram.OTPMessage(code, r.svc.Admission.CodeExpiresAt(rec)))
	case errors.Is(err, consent.ErrNoPendingConsent):
		return r.reply(ctx, chatID, telegram.MsgOTPNoPending)
	case errors.Is(err, admission.ErrCooldown):
		return r.reply(ctx, chatID, telegram.MsgOTPCooldown)
	default:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
}
