// Package telegram is the Bot API transport: a resty-based client, the long
// polling loop and the notifier that turns domain events into messages.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"
	// long polling holds the request open for up to the poll timeout
	clientTimeout = 75 * time.Second
)

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// Client calls the Telegram Bot API. Requests that fail with 429 or a 5xx
// are retried by resty; 400 and 403 are returned at once.
type Client struct {
	http    *resty.Client
	enabled bool
	logger  logger.Interface
}

func NewClient(cfg config.TelegramConfig, log logger.Interface) *Client {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = defaultAPIBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", base, cfg.BotToken)).
		SetTimeout(clientTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:    httpClient,
		enabled: cfg.BotToken != "",
		logger:  log,
	}
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// call posts body to method and decodes the result into out when non-nil.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	if !c.enabled {
		return ErrNotConfigured
	}

	var envelope apiResponse
	req := c.http.R().
		SetContext(ctx).
		SetResult(&envelope).
		SetError(&envelope)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post("/" + method)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	if !envelope.OK {
		apiErr := &APIError{ErrorCode: envelope.ErrorCode, Description: envelope.Description}
		if apiErr.ErrorCode == 0 {
			apiErr.ErrorCode = resp.StatusCode()
		}
		if envelope.Parameters != nil {
			apiErr.RetryAfter = envelope.Parameters.RetryAfter
		}
		return apiErr
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	body := map[string]any{
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query", "chat_join_request"},
	}
	if offset > 0 {
		body["offset"] = offset
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers url, with secret echoed back in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	body := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query", "chat_join_request"},
	}
	if secret != "" {
		body["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", body, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", nil, nil)
}

// SetMyCommands sets the command menu, for one chat when chatID is non-zero.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand, chatID int64) error {
	body := map[string]any{"commands": commands}
	if chatID != 0 {
		body["scope"] = map[string]any{"type": "chat", "chat_id": chatID}
	}
	return c.call(ctx, "setMyCommands", body, nil)
}

// SendMessage sends an HTML message, split when longer than Telegram allows.
// The keyboard, if any, goes with the last chunk.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	chunks := splitMessage(text, maxMessageLength)
	for i, chunk := range chunks {
		body := map[string]any{
			"chat_id":                  chatID,
			"text":                     chunk,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		}
		if keyboard != nil && i == len(chunks)-1 {
			body["reply_markup"] = keyboard
		}
		if err := c.call(ctx, "sendMessage", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// EditMessageText replaces the text and keyboard of a sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboardMarkup) error {
	body := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		body["reply_markup"] = keyboard
	}
	err := c.call(ctx, "editMessageText", body, nil)
	if IsNotModified(err) {
		return nil
	}
	return err
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	body := map[string]any{"callback_query_id": callbackQueryID}
	if text != "" {
		body["text"] = text
	}
	if showAlert {
		body["show_alert"] = true
	}
	return c.call(ctx, "answerCallbackQuery", body, nil)
}

func (c *Client) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	return c.call(ctx, "approveChatJoinRequest", map[string]any{"chat_id": chatID, "user_id": userID}, nil)
}

func (c *Client) DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	return c.call(ctx, "declineChatJoinRequest", map[string]any{"chat_id": chatID, "user_id": userID}, nil)
}
