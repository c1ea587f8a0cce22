package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
)

func (r *Router) handleCallback(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	// the message may be gone from the client's view; fall back to the
	// private chat, whose id equals the user id
	chatID := cq.From.ID
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}

	token, arg := telegram.ParseCallback(cq.Data)
	var (
		notice string
		err    error
	)
	switch token {
	case telegram.CallbackApprove, telegram.CallbackReject:
		notice, err = r.decisionCallback(ctx, cq, token, arg)
	case telegram.CallbackConsentAccept:
		err = r.acceptConsent(ctx, chatID, cq.From.ID)
	case telegram.CallbackConsentDecline:
		err = r.declineConsent(ctx, chatID, cq.From.ID)
	case telegram.CallbackNewCode:
		err = r.newCode(ctx, chatID, cq.From.ID)
	case telegram.CallbackCheckout:
		err = r.subscribe(ctx, chatID, cq.From.ID)
	case telegram.CallbackPortal:
		err = r.manage(ctx, chatID, cq.From.ID)
	case telegram.CallbackTicketCategory:
		err = r.pickCategory(ctx, cq, chatID, arg)
	case telegram.CallbackTicketClose:
		notice, err = r.closeCallback(ctx, cq, arg)
	default:
		r.logger.Debugw("unknown callback data", "data", cq.Data, "user_id", cq.From.ID)
	}

	if aerr := r.api.AnswerCallbackQuery(ctx, cq.ID, stripTags(notice), false); aerr != nil {
		r.logger.Debugw("failed to answer callback query", "error", aerr)
	}
	return err
}

func (r *Router) requireAdmin(ctx context.Context, userID int64) (bool, error) {
	ok, err := r.svc.Roster.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Router) decisionCallback(ctx context.Context, cq *telegram.CallbackQuery, token, arg string) (string, error) {
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return telegram.MsgUnknownInput, nil
	}
	decision := "approve"
	label := "✅ Approved"
	if token == telegram.CallbackReject {
		decision = "reject"
		label = "🚫 Rejected"
	}

	notice := r.applyDecision(ctx, decision, userID, cq.From.ID)
	if notice == telegram.MsgAdminRosterChanged && cq.Message != nil && cq.Message.Chat != nil {
		adminName := cq.From.FirstName
		if cq.From.Username != "" {
			adminName = "@" + cq.From.Username
		}
		note := telegram.DecisionNote(userID, label, adminName)
		if err := r.api.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, note, nil); err != nil {
			r.logger.Warnw("failed to update decision message", "user_id", userID, "error", err)
		}
	}
	return notice, nil
}

func (r *Router) closeCallback(ctx context.Context, cq *telegram.CallbackQuery, arg string) (string, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return telegram.MsgTicketNotFound, nil
	}
	ok, err := r.requireAdmin(ctx, cq.From.ID)
	if err != nil {
		return telegram.MsgGenericError, err
	}
	if !ok {
		return telegram.MsgNotAllowed, nil
	}
	notice := r.applyClose(ctx, uint(id), cq.From.ID)
	if notice == telegram.MsgAdminRosterChanged && cq.Message != nil && cq.Message.Chat != nil {
		text := cq.Message.Text + "\n\n✔️ Closed"
		if err := r.api.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, telegram.EscapeHTML(text), nil); err != nil {
			r.logger.Warnw("failed to update ticket message", "ticket_id", id, "error", err)
		}
	}
	return notice, nil
}

// stripTags turns a bot message into the plain text a callback toast needs.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, c := range s {
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case !inTag:
			b.WriteRune(c)
		}
	}
	return strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&").Replace(b.String())
}
