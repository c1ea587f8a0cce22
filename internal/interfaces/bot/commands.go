package bot

import (
	"context"
	"errors"
	"time"

	"github.com/orris-inc/gatekeeper/internal/application/billing"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
)

// Commands is the menu published with setMyCommands.
var Commands = []telegram.BotCommand{
	{Command: "start", Description: "Start"},
	{Command: "request", Description: "Ask to join"},
	{Command: "status", Description: "Your current status"},
	{Command: "consent", Description: "Sign the consent form"},
	{Command: "newcode", Description: "Get a new confirmation code"},
	{Command: "subscribe", Description: "Pay the subscription"},
	{Command: "manage", Description: "Manage your subscription"},
	{Command: "support", Description: "Contact the staff"},
	{Command: "cancel", Description: "Stop the current form"},
	{Command: "help", Description: "List the commands"},
}

func (r *Router) handleCommand(ctx context.Context, msg *telegram.Message, cmd, args string) error {
	chatID, userID := msg.Chat.ID, msg.From.ID

	switch cmd {
	case "start":
		return r.reply(ctx, chatID, telegram.MsgWelcome)
	case "help":
		return r.help(ctx, chatID, userID)
	case "request":
		return r.requestAccess(ctx, chatID, userID)
	case "status":
		return r.status(ctx, chatID, userID)
	case "consent":
		return r.startConsent(ctx, chatID, userID)
	case "otp":
		if args == "" {
			return r.reply(ctx, chatID, telegram.MsgOTPUsage)
		}
		return r.confirmCode(ctx, chatID, userID, args)
	case "newcode":
		return r.newCode(ctx, chatID, userID)
	case "subscribe":
		return r.subscribe(ctx, chatID, userID)
	case "manage":
		return r.manage(ctx, chatID, userID)
	case "support":
		return r.send(ctx, chatID, telegram.MsgSupportChooseCategory, telegram.TicketCategoryKeyboard())
	case "cancel":
		return r.cancel(ctx, chatID, userID)
	}

	if handler, ok := r.adminCommands()[cmd]; ok {
		isAdmin, err := r.svc.Roster.IsAdmin(ctx, userID)
		if err != nil {
			_ = r.reply(ctx, chatID, telegram.MsgGenericError)
			return err
		}
		if !isAdmin {
			return r.reply(ctx, chatID, telegram.MsgNotAllowed)
		}
		return handler(ctx, chatID, userID, cmd, args)
	}
	return r.reply(ctx, chatID, telegram.MsgUnknownInput)
}

func (r *Router) help(ctx context.Context, chatID, userID int64) error {
	text := telegram.MsgHelpUser
	if ok, err := r.svc.Roster.IsAdmin(ctx, userID); err == nil && ok {
		text += telegram.MsgHelpAdmin
	}
	return r.reply(ctx, chatID, text)
}

func (r *Router) requestAccess(ctx context.Context, chatID, userID int64) error {
	_, err := r.svc.Admission.RequestAccess(ctx, userID)
	if err == nil {
		return r.reply(ctx, chatID, telegram.MsgRequestSent)
	}
	if !errors.Is(err, member.ErrInvalidTransition) {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}

	st, err := r.svc.Admission.Status(ctx, userID)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	switch st.Stage {
	case member.StagePending:
		return r.reply(ctx, chatID, telegram.MsgRequestPending)
	case member.StageRejected:
		return r.reply(ctx, chatID, telegram.MsgRequestRejected)
	default:
		return r.reply(ctx, chatID, telegram.MsgRequestNotNeeded)
	}
}

func (r *Router) status(ctx context.Context, chatID, userID int64) error {
	st, err := r.svc.Admission.Status(ctx, userID)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	var (
		until    *time.Time
		payments int
	)
	if st.Member != nil {
		until = st.Member.SubscriptionActiveUntil()
		payments = st.Member.TotalPayments()
	}
	return r.reply(ctx, chatID, telegram.StatusMessage(st.Stage.String(), until, payments))
}

func (r *Router) subscribe(ctx context.Context, chatID, userID int64) error {
	st, err := r.svc.Admission.Status(ctx, userID)
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if st.Stage == member.StageSubscribed {
		return r.reply(ctx, chatID, telegram.MsgAlreadySubscribed)
	}

	url, err := r.svc.Billing.CreateCheckout(ctx, userID)
	switch {
	case err == nil:
		return r.send(ctx, chatID, telegram.MsgSubscribeReady, telegram.LinkKeyboard("💳 Pay", url))
	case errors.Is(err, billing.ErrCannotSubscribe):
		return r.reply(ctx, chatID, telegram.MsgSubscribeNotYet)
	case errors.Is(err, billing.ErrNotConfigured):
		return r.reply(ctx, chatID, telegram.MsgBillingDisabled)
	default:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
}

func (r *Router) manage(ctx context.Context, chatID, userID int64) error {
	url, err := r.svc.Billing.CreatePortal(ctx, userID)
	switch {
	case err == nil:
		return r.send(ctx, chatID, telegram.MsgManageReady, telegram.LinkKeyboard("⚙️ Manage", url))
	case errors.Is(err, billing.ErrNoCustomer):
		return r.reply(ctx, chatID, telegram.MsgNoBillingAccount)
	case errors.Is(err, billing.ErrNotConfigured):
		return r.reply(ctx, chatID, telegram.MsgBillingDisabled)
	default:
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
}

// cancel drops both drafts. Neither is persisted, so there is nothing to undo.
func (r *Router) cancel(ctx context.Context, chatID, userID int64) error {
	if err := r.svc.Form.Cancel(ctx, userID); err != nil {
		r.logger.Warnw("failed to discard consent draft", "user_id", userID, "error", err)
	}
	if err := r.svc.SupportDrafts.Delete(ctx, userID); err != nil {
		r.logger.Warnw("failed to discard support draft", "user_id", userID, "error", err)
	}
	return r.reply(ctx, chatID, telegram.MsgConsentCancelled)
}
