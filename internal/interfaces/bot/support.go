package bot

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/orris-inc/gatekeeper/internal/application/support"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
)

const minDescriptionLen = 10

func (r *Router) pickCategory(ctx context.Context, cq *telegram.CallbackQuery, chatID int64, arg string) error {
	if _, err := ticket.NewCategory(arg); err != nil {
		return r.reply(ctx, chatID, telegram.MsgUnknownInput)
	}
	if err := r.svc.SupportDrafts.Save(ctx, cq.From.ID, arg, r.opts.SupportDraftTTL); err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		return r.api.EditMessageText(ctx, chatID, cq.Message.MessageID, telegram.MsgSupportAskDescription, nil)
	}
	return r.reply(ctx, chatID, telegram.MsgSupportAskDescription)
}

func (r *Router) openTicket(ctx context.Context, chatID, userID int64, category, text string) error {
	if utf8.RuneCountInString(text) < minDescriptionLen {
		return r.reply(ctx, chatID, telegram.MsgSupportTooShort)
	}

	t, err := r.svc.Support.Open(ctx, support.OpenTicketCommand{
		UserID:      userID,
		Category:    category,
		Description: text,
	})
	if errors.Is(err, ticket.ErrInvalidTicket) {
		return r.reply(ctx, chatID, telegram.MsgSupportTooShort)
	}
	if err != nil {
		_ = r.reply(ctx, chatID, telegram.MsgGenericError)
		return err
	}
	if err := r.svc.SupportDrafts.Delete(ctx, userID); err != nil {
		r.logger.Warnw("failed to discard support draft", "user_id", userID, "error", err)
	}
	return r.reply(ctx, chatID, telegram.TicketCreatedMessage(t.ID()))
}
