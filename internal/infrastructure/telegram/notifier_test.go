package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/application/notification"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard *InlineKeyboardMarkup
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, kb *InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[chatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

type staticAdmins []int64

func (s staticAdmins) AdminIDs(context.Context) ([]int64, error) { return s, nil }

type fakeMailer struct {
	subjects []string
}

func (f *fakeMailer) SendStaffAlert(_ context.Context, subject, _ string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func TestBotNotifier_AccessRequestedGoesToEveryAdmin(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]error{
		3: &APIError{ErrorCode: 403, Description: "blocked"},
	}}
	n := NewBotNotifier(sender, staticAdmins{1, 2, 3}, 0, nil, logger.NewNop())

	err := n.NotifyAccessRequested(context.Background(), notification.AccessRequestedCommand{
		UserID: 501, Username: "alice", DisplayName: "Alice", RequestedAt: time.Now(),
	})
	require.NoError(t, err, "a blocked admin is not an error")

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "@alice")
	assert.Equal(t, "adm:approve:501", sender.sent[0].Keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestBotNotifier_AccessRequestedJoinsFailures(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]error{2: errors.New("timeout")}}
	n := NewBotNotifier(sender, staticAdmins{1, 2}, 0, nil, logger.NewNop())

	err := n.NotifyAccessRequested(context.Background(), notification.AccessRequestedCommand{UserID: 501})
	assert.Error(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestBotNotifier_Activation(t *testing.T) {
	sender := &fakeSender{}
	n := NewBotNotifier(sender, staticAdmins{}, 0, []string{"https://t.me/+channel"}, logger.NewNop())
	until := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)

	require.NoError(t, n.NotifySubscription(context.Background(), notification.SubscriptionCommand{
		UserID: 501, Event: notification.SubscriptionActivated, ActiveUntil: &until,
	}))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "09/04/2026")
	assert.Contains(t, sender.sent[0].Text, "https://t.me/+channel")
}

func TestBotNotifier_PaymentFailedAlertsStaff(t *testing.T) {
	sender := &fakeSender{}
	mailer := &fakeMailer{}
	n := NewBotNotifier(sender, staticAdmins{1}, -500, nil, logger.NewNop()).WithMailer(mailer)

	require.NoError(t, n.NotifySubscription(context.Background(), notification.SubscriptionCommand{
		UserID: 501, DisplayName: "Alice", Event: notification.SubscriptionPaymentFailed,
		AmountCents: 2000, Currency: "eur",
	}))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(501), sender.sent[0].ChatID)
	assert.Equal(t, int64(-500), sender.sent[1].ChatID)
	assert.Contains(t, sender.sent[1].Text, "20.00 EUR")
	assert.Equal(t, []string{"Payment failed"}, mailer.subjects)
}

func TestBotNotifier_TicketOpenedWithoutStaffChat(t *testing.T) {
	sender := &fakeSender{}
	n := NewBotNotifier(sender, staticAdmins{1, 2}, 0, nil, logger.NewNop())

	require.NoError(t, n.NotifyTicketOpened(context.Background(), notification.TicketOpenedCommand{
		TicketID: 7, UserID: 501, DisplayName: "Alice", Category: "payment", Priority: "high",
		Description: "card <declined>",
	}))
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "card &lt;declined&gt;")
	assert.Equal(t, "tkclose:7", sender.sent[0].Keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestBotNotifier_JoinDeclined(t *testing.T) {
	sender := &fakeSender{}
	n := NewBotNotifier(sender, staticAdmins{}, 0, nil, logger.NewNop())

	require.NoError(t, n.NotifyJoinDeclined(context.Background(), notification.JoinDeclinedCommand{
		UserID: 501, ChatID: -100, Reason: "must complete payment",
	}))
	assert.Contains(t, sender.sent[0].Text, "must complete payment")
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data, token, arg string
	}{
		{"adm:approve:501", CallbackApprove, "501"},
		{"adm:reject:12", CallbackReject, "12"},
		{"tk:payment", CallbackTicketCategory, "payment"},
		{"tkclose:9", CallbackTicketClose, "9"},
		{"consent:accept", CallbackConsentAccept, ""},
		{"otp:new", CallbackNewCode, ""},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			token, arg := ParseCallback(tt.data)
			assert.Equal(t, tt.token, token)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("line one\nline two\nline three", 12)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 12)
	}
}
