// Package bot turns Telegram updates into calls on the application services.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/orris-inc/gatekeeper/internal/application/accessgate"
	"github.com/orris-inc/gatekeeper/internal/application/admission"
	"github.com/orris-inc/gatekeeper/internal/application/consentform"
	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/application/stats"
	"github.com/orris-inc/gatekeeper/internal/application/support"
	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/domain/consent"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// Admission is the member lifecycle as seen from the bot.
type Admission interface {
	EnsureMember(ctx context.Context, p admission.Profile) (*member.Member, error)
	Member(ctx context.Context, userID int64) (*member.Member, error)
	ResolveUsername(ctx context.Context, username string) (*member.Member, error)
	Status(ctx context.Context, userID int64) (*admission.Status, error)
	ListPending(ctx context.Context) ([]*member.Member, error)
	RequestAccess(ctx context.Context, userID int64) (*member.Member, error)
	Approve(ctx context.Context, userID, adminID int64) (*member.Member, error)
	Reject(ctx context.Context, userID, adminID int64) (*member.Member, error)
	Reconsider(ctx context.Context, userID, adminID int64) (*member.Member, error)
	SubmitConsent(ctx context.Context, userID int64, a consent.Anagraphic) (*consent.Record, string, error)
	ConfirmConsent(ctx context.Context, userID int64, input string) (*consent.Record, error)
	RegenerateCode(ctx context.Context, userID int64) (*consent.Record, string, error)
	RestartConsent(ctx context.Context, userID int64) error
	CodeExpiresAt(rec *consent.Record) time.Time
}

type ConsentForm interface {
	Start(ctx context.Context, userID int64) (*consentform.Draft, error)
	Current(ctx context.Context, userID int64) (*consentform.Draft, error)
	Answer(ctx context.Context, userID int64, input string) (*consentform.Draft, error)
	Anagraphic(d *consentform.Draft) (consent.Anagraphic, error)
	Cancel(ctx context.Context, userID int64) error
}

type Gate interface {
	Decide(ctx context.Context, userID int64) (accessgate.Decision, error)
}

type Billing interface {
	CreateCheckout(ctx context.Context, userID int64) (string, error)
	CreatePortal(ctx context.Context, userID int64) (string, error)
}

type Support interface {
	Open(ctx context.Context, cmd support.OpenTicketCommand) (*ticket.Ticket, error)
	ListOpen(ctx context.Context, actorID int64) ([]*ticket.Ticket, error)
	Close(ctx context.Context, ticketID uint, actorID int64) (*ticket.Ticket, error)
}

type Roster interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	IsSuperAdmin(userID int64) bool
	AddAdmin(ctx context.Context, targetID, actorID int64) (bool, error)
	RemoveAdmin(ctx context.Context, targetID, actorID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]*admin.Record, error)
}

type Stats interface {
	Stats(ctx context.Context, actorID int64) (*stats.Stats, error)
}

// SupportDrafts remembers the category picked before the description.
type SupportDrafts interface {
	Get(ctx context.Context, userID int64) (string, error)
	Save(ctx context.Context, userID int64, category string, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

// BotAPI is the part of the Telegram client the router calls.
type BotAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
	ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error
	DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error
}

type Services struct {
	Admission     Admission
	Form          ConsentForm
	Gate          Gate
	Billing       Billing
	Support       Support
	Roster        Roster
	Stats         Stats
	SupportDrafts SupportDrafts
	Notify        *notification.Dispatcher
}

type Options struct {
	// DocumentHTML is the consent document in Telegram HTML.
	DocumentHTML string
	Currency     string
	// IsProtected reports whether join requests for a chat are arbitrated.
	// Nil protects every chat.
	IsProtected     func(chatID int64) bool
	SupportDraftTTL time.Duration
}

var _ telegram.UpdateHandler = (*Router)(nil)

// Router handles every update kind the bot subscribes to.
type Router struct {
	svc    Services
	api    BotAPI
	opts   Options
	logger logger.Interface
}

func NewRouter(api BotAPI, svc Services, opts Options, logger logger.Interface) *Router {
	if opts.SupportDraftTTL <= 0 {
		opts.SupportDraftTTL = 30 * time.Minute
	}
	if opts.IsProtected == nil {
		opts.IsProtected = func(int64) bool { return true }
	}
	return &Router{svc: svc, api: api, opts: opts, logger: logger}
}

func (r *Router) HandleUpdate(ctx context.Context, u *telegram.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return r.handleCallback(ctx, u.CallbackQuery)
	case u.ChatJoinRequest != nil:
		return r.handleJoinRequest(ctx, u.ChatJoinRequest)
	case u.Message != nil:
		return r.handleMessage(ctx, u.Message)
	default:
		return nil
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) error {
	return r.send(ctx, chatID, text, nil)
}

func (r *Router) send(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	err := r.api.SendMessage(ctx, chatID, text, kb)
	if telegram.IsBotBlocked(err) {
		r.logger.Debugw("user blocked the bot", "chat_id", chatID)
		return nil
	}
	return err
}

func profileOf(u *telegram.User) admission.Profile {
	return admission.Profile{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if !msg.IsPrivate() {
		if strings.HasPrefix(text, "/") {
			return r.reply(ctx, msg.Chat.ID, telegram.MsgPrivateOnly)
		}
		return nil
	}

	if _, err := r.svc.Admission.EnsureMember(ctx, profileOf(msg.From)); err != nil {
		r.logger.Errorw("failed to register member", "user_id", msg.From.ID, "error", err)
		_ = r.reply(ctx, msg.Chat.ID, telegram.MsgGenericError)
		return err
	}

	if strings.HasPrefix(text, "/") {
		cmd, args := parseCommand(text)
		return r.handleCommand(ctx, msg, cmd, args)
	}
	return r.handleText(ctx, msg, text)
}

// parseCommand splits "/approve@GateBot @alice" into ("approve", "@alice").
func parseCommand(text string) (string, string) {
	cmd, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// handleText routes free text to whichever conversation is open: a support
// description first, then the consent form, then a typed code.
func (r *Router) handleText(ctx context.Context, msg *telegram.Message, text string) error {
	userID := msg.From.ID

	category, err := r.svc.SupportDrafts.Get(ctx, userID)
	if err != nil {
		r.logger.Warnw("failed to read support draft", "user_id", userID, "error", err)
	}
	if category != "" {
		return r.openTicket(ctx, msg.Chat.ID, userID, category, text)
	}

	draft, err := r.svc.Form.Current(ctx, userID)
	switch {
	case err == nil && draft.Step != consentform.StepAcceptance:
		return r.answerForm(ctx, msg.Chat.ID, userID, text)
	case err == nil:
		return r.send(ctx, msg.Chat.ID, r.summary(draft), telegram.ConsentKeyboard())
	case !errors.Is(err, consentform.ErrNoDraft):
		r.logger.Warnw("failed to read consent draft", "user_id", userID, "error", err)
	}

	if consent.IsCodeShaped(text) {
		return r.confirmCode(ctx, msg.Chat.ID, userID, text)
	}
	return r.reply(ctx, msg.Chat.ID, telegram.MsgUnknownInput)
}
