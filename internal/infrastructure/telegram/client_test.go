package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

type recordedCall struct {
	Method string
	Body   map[string]any
}

// fakeBotAPI answers Bot API calls with canned replies per method.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []recordedCall
	replies map[string]func(w http.ResponseWriter)
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *Client) {
	t.Helper()
	api := &fakeBotAPI{replies: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		api.mu.Lock()
		api.calls = append(api.calls, recordedCall{Method: method, Body: body})
		reply := api.replies[method]
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if reply != nil {
			reply(w)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.TelegramConfig{BotToken: "123:abc", APIBaseURL: srv.URL}, logger.NewNop())
	return api, client
}

func (f *fakeBotAPI) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestClient_SendMessage(t *testing.T) {
	api, client := newFakeBotAPI(t)

	err := client.SendMessage(context.Background(), 501, "<b>hi</b>", CheckoutKeyboard())
	require.NoError(t, err)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sendMessage", calls[0].Method)
	assert.Equal(t, float64(501), calls[0].Body["chat_id"])
	assert.Equal(t, "HTML", calls[0].Body["parse_mode"])
	assert.NotNil(t, calls[0].Body["reply_markup"])
}

func TestClient_SendMessage_SplitsLongText(t *testing.T) {
	api, client := newFakeBotAPI(t)

	text := strings.Repeat("a", 4000) + "\n\n" + strings.Repeat("b", 500)
	require.NoError(t, client.SendMessage(context.Background(), 1, text, CheckoutKeyboard()))

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].Body["reply_markup"])
	assert.NotNil(t, calls[1].Body["reply_markup"])
}

func TestClient_APIError(t *testing.T) {
	api, client := newFakeBotAPI(t)
	api.replies["sendMessage"] = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}

	err := client.SendMessage(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.True(t, IsBotBlocked(err))
	assert.Len(t, api.Calls(), 1, "403 is not retried")
}

func TestClient_RetryAfter(t *testing.T) {
	api, client := newFakeBotAPI(t)
	client.http.SetRetryCount(0)
	api.replies["sendMessage"] = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`))
	}

	err := client.SendMessage(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.True(t, IsRetryAfter(err))
}

func TestClient_GetUpdates(t *testing.T) {
	api, client := newFakeBotAPI(t)
	api.replies["getUpdates"] = func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"message":{"message_id":1,"from":{"id":501,"first_name":"Alice"},"chat":{"id":501,"type":"private"},"text":"/start"}},
			{"update_id":11,"chat_join_request":{"chat":{"id":-100,"type":"supergroup"},"from":{"id":502,"first_name":"Bob"},"user_chat_id":502,"date":1}}
		]}`))
	}

	updates, err := client.GetUpdates(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "message", updates[0].Kind())
	assert.Equal(t, "join_request", updates[1].Kind())
	assert.Equal(t, int64(502), updates[1].Sender().ID)

	assert.Equal(t, float64(10), api.Calls()[0].Body["offset"])
}

func TestClient_EditNotModifiedIsIgnored(t *testing.T) {
	api, client := newFakeBotAPI(t)
	api.replies["editMessageText"] = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`))
	}

	assert.NoError(t, client.EditMessageText(context.Background(), 1, 2, "same", nil))
}

func TestClient_JoinRequests(t *testing.T) {
	api, client := newFakeBotAPI(t)
	ctx := context.Background()

	require.NoError(t, client.ApproveChatJoinRequest(ctx, -100, 501))
	require.NoError(t, client.DeclineChatJoinRequest(ctx, -100, 502))

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "approveChatJoinRequest", calls[0].Method)
	assert.Equal(t, "declineChatJoinRequest", calls[1].Method)
	assert.Equal(t, float64(502), calls[1].Body["user_id"])
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.TelegramConfig{}, logger.NewNop())
	assert.False(t, client.Enabled())
	assert.ErrorIs(t, client.SendMessage(context.Background(), 1, "x", nil), ErrNotConfigured)
}
