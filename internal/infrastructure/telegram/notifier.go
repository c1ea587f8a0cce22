package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// MessageSender is the part of Client the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error
}

// AdminDirectory lists the chat ids of every admin.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]int64, error)
}

// StaffMailer sends a plain e-mail to the staff mailbox.
type StaffMailer interface {
	SendStaffAlert(ctx context.Context, subject, body string) error
}

var _ notification.Notifier = (*BotNotifier)(nil)

// BotNotifier delivers notifications as bot messages. Staff alerts go to the
// staff chat when one is configured, otherwise to every admin.
type BotNotifier struct {
	sender      MessageSender
	admins      AdminDirectory
	mailer      StaffMailer // optional
	staffChatID int64
	links       []string
	logger      logger.Interface
}

func NewBotNotifier(
	sender MessageSender,
	admins AdminDirectory,
	staffChatID int64,
	links []string,
	logger logger.Interface,
) *BotNotifier {
	return &BotNotifier{
		sender:      sender,
		admins:      admins,
		staffChatID: staffChatID,
		links:       links,
		logger:      logger,
	}
}

// WithMailer copies staff alerts to e-mail.
func (n *BotNotifier) WithMailer(m StaffMailer) *BotNotifier {
	n.mailer = m
	return n
}

func (n *BotNotifier) send(ctx context.Context, chatID int64, text string, kb *InlineKeyboardMarkup) error {
	err := n.sender.SendMessage(ctx, chatID, text, kb)
	if IsBotBlocked(err) {
		n.logger.Infow("member blocked the bot, message dropped", "chat_id", chatID)
		return nil
	}
	return err
}

// broadcastAdmins sends to every admin and joins the failures.
func (n *BotNotifier) broadcastAdmins(ctx context.Context, text string, kb *InlineKeyboardMarkup) error {
	ids, err := n.admins.AdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if err := n.send(ctx, id, text, kb); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (n *BotNotifier) alertStaff(ctx context.Context, subject, text string, kb *InlineKeyboardMarkup) error {
	var errs []error
	if n.staffChatID != 0 {
		if err := n.send(ctx, n.staffChatID, text, kb); err != nil {
			errs = append(errs, err)
		}
	} else if err := n.broadcastAdmins(ctx, text, kb); err != nil {
		errs = append(errs, err)
	}
	if n.mailer != nil {
		if err := n.mailer.SendStaffAlert(ctx, subject, text); err != nil {
			errs = append(errs, fmt.Errorf("staff mail: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (n *BotNotifier) NotifyAccessRequested(ctx context.Context, cmd notification.AccessRequestedCommand) error {
	text := AccessRequestedMessage(cmd.DisplayName, cmd.Username, cmd.UserID)
	return n.broadcastAdmins(ctx, text, DecisionKeyboard(cmd.UserID))
}

func (n *BotNotifier) NotifyDecision(ctx context.Context, cmd notification.DecisionCommand) error {
	switch cmd.Decision {
	case notification.DecisionApproved:
		return n.send(ctx, cmd.UserID, MsgDecisionApproved, nil)
	case notification.DecisionRejected:
		return n.send(ctx, cmd.UserID, MsgDecisionRejected, nil)
	case notification.DecisionReconsidered:
		return n.send(ctx, cmd.UserID, MsgDecisionReconsidered, nil)
	default:
		return fmt.Errorf("unknown decision %q", cmd.Decision)
	}
}

func (n *BotNotifier) NotifyConsentConfirmed(ctx context.Context, cmd notification.ConsentConfirmedCommand) error {
	return n.send(ctx, cmd.UserID, ConsentConfirmedMessage(cmd.ConsentID, cmd.DocumentVersion), CheckoutKeyboard())
}

func (n *BotNotifier) NotifySubscription(ctx context.Context, cmd notification.SubscriptionCommand) error {
	switch cmd.Event {
	case notification.SubscriptionActivated:
		return n.send(ctx, cmd.UserID, ActivatedMessage(false, cmd.ActiveUntil, n.links), nil)
	case notification.SubscriptionRenewed:
		return n.send(ctx, cmd.UserID, ActivatedMessage(true, cmd.ActiveUntil, nil), nil)
	case notification.SubscriptionExpiring:
		return n.send(ctx, cmd.UserID, ExpiringMessage(cmd.ActiveUntil), CheckoutKeyboard())
	case notification.SubscriptionExpired:
		return n.send(ctx, cmd.UserID, MsgExpired, CheckoutKeyboard())
	case notification.SubscriptionCancelled:
		return n.send(ctx, cmd.UserID, MsgCancelled, nil)
	case notification.SubscriptionPaymentFailed:
		memberErr := n.send(ctx, cmd.UserID, MsgPaymentFailed, nil)
		staffErr := n.alertStaff(ctx, "Payment failed",
			PaymentFailedStaffMessage(cmd.DisplayName, cmd.UserID, cmd.AmountCents, cmd.Currency), nil)
		return errors.Join(memberErr, staffErr)
	default:
		return fmt.Errorf("unknown subscription event %q", cmd.Event)
	}
}

func (n *BotNotifier) NotifyJoinDeclined(ctx context.Context, cmd notification.JoinDeclinedCommand) error {
	return n.send(ctx, cmd.UserID, JoinDeclinedMessage(cmd.Reason), nil)
}

func (n *BotNotifier) NotifyTicketOpened(ctx context.Context, cmd notification.TicketOpenedCommand) error {
	text := TicketOpenedMessage(cmd.TicketID, cmd.DisplayName, cmd.UserID, cmd.Category, cmd.Priority, cmd.Description)
	return n.alertStaff(ctx, fmt.Sprintf("Ticket #%d (%s)", cmd.TicketID, cmd.Priority), text, TicketCloseKeyboard(cmd.TicketID))
}
