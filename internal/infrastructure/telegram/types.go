package telegram

// Update is one entry returned by getUpdates or posted to the webhook.
type Update struct {
	UpdateID        int64            `json:"update_id"`
	Message         *Message         `json:"message,omitempty"`
	CallbackQuery   *CallbackQuery   `json:"callback_query,omitempty"`
	ChatJoinRequest *ChatJoinRequest `json:"chat_join_request,omitempty"`
}

// Sender returns the user who caused the update, or nil.
func (u *Update) Sender() *User {
	switch {
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From
	case u.ChatJoinRequest != nil:
		return u.ChatJoinRequest.From
	case u.Message != nil:
		return u.Message.From
	default:
		return nil
	}
}

// Kind labels the update for logs and metrics.
func (u *Update) Kind() string {
	switch {
	case u.CallbackQuery != nil:
		return "callback"
	case u.ChatJoinRequest != nil:
		return "join_request"
	case u.Message != nil:
		return "message"
	default:
		return "other"
	}
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// IsPrivate reports whether the message was sent in a one-to-one chat.
func (m *Message) IsPrivate() bool {
	return m.Chat != nil && m.Chat.Type == "private"
}

// ChatJoinRequest is sent when a user asks to join a chat that requires
// admin approval.
type ChatJoinRequest struct {
	Chat       *Chat  `json:"chat"`
	From       *User  `json:"from"`
	UserChatID int64  `json:"user_chat_id"`
	Date       int64  `json:"date"`
	InviteLink *struct {
		InviteLink string `json:"invite_link"`
	} `json:"invite_link,omitempty"`
}

type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// BotCommand is one entry of the command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// NewInlineKeyboard creates a new inline keyboard with the given rows
func NewInlineKeyboard(rows ...[]InlineKeyboardButton) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// NewInlineKeyboardRow creates a row of inline buttons
func NewInlineKeyboardRow(buttons ...InlineKeyboardButton) []InlineKeyboardButton {
	return buttons
}

// NewInlineKeyboardButton creates a callback button
func NewInlineKeyboardButton(text, callbackData string) InlineKeyboardButton {
	return InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// NewInlineKeyboardButtonURL creates a URL button
func NewInlineKeyboardButtonURL(text, url string) InlineKeyboardButton {
	return InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}
