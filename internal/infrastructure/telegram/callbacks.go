package telegram

import (
	"strconv"
	"strings"
)

// Callback data tokens carried by inline buttons.
const (
	CallbackApprove        = "adm:approve"
	CallbackReject         = "adm:reject"
	CallbackConsentAccept  = "consent:accept"
	CallbackConsentDecline = "consent:decline"
	CallbackNewCode        = "otp:new"
	CallbackCheckout       = "sub:checkout"
	CallbackPortal         = "sub:portal"
	CallbackTicketCategory = "tk"
	CallbackTicketClose    = "tkclose"
)

// CallbackWithID appends an id argument: "adm:approve:501".
func CallbackWithID(token string, id int64) string {
	return token + ":" + strconv.FormatInt(id, 10)
}

// ParseCallback splits data into its token and trailing argument. For
// "adm:approve:501" it returns ("adm:approve", "501"); for "tk:payment"
// it returns ("tk", "payment").
func ParseCallback(data string) (token, arg string) {
	switch {
	case strings.HasPrefix(data, "adm:"):
		if i := strings.LastIndex(data, ":"); i > len("adm") {
			return data[:i], data[i+1:]
		}
		return data, ""
	case strings.HasPrefix(data, CallbackTicketClose+":"):
		return CallbackTicketClose, strings.TrimPrefix(data, CallbackTicketClose+":")
	case strings.HasPrefix(data, CallbackTicketCategory+":"):
		return CallbackTicketCategory, strings.TrimPrefix(data, CallbackTicketCategory+":")
	default:
		return data, ""
	}
}

// DecisionKeyboard offers approve and reject for a pending member.
func DecisionKeyboard(userID int64) *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(
		NewInlineKeyboardButton("✅ Approve", CallbackWithID(CallbackApprove, userID)),
		NewInlineKeyboardButton("🚫 Reject", CallbackWithID(CallbackReject, userID)),
	))
}

// CheckoutKeyboard has the single subscribe button.
func CheckoutKeyboard() *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(
		NewInlineKeyboardButton("💳 Subscribe", CallbackCheckout),
	))
}

// NewCodeKeyboard has the single "new code" button.
func NewCodeKeyboard() *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(
		NewInlineKeyboardButton("🔁 New code", CallbackNewCode),
	))
}

// ConsentKeyboard asks to accept or decline the document.
func ConsentKeyboard() *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(
		NewInlineKeyboardButton("✅ I accept", CallbackConsentAccept),
		NewInlineKeyboardButton("❌ Decline", CallbackConsentDecline),
	))
}

// LinkKeyboard opens url.
func LinkKeyboard(label, url string) *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(NewInlineKeyboardButtonURL(label, url)))
}

// TicketCategoryKeyboard lists the support categories.
func TicketCategoryKeyboard() *InlineKeyboardMarkup {
	return NewInlineKeyboard(
		NewInlineKeyboardRow(
			NewInlineKeyboardButton("💳 Payment", CallbackTicketCategory+":payment"),
			NewInlineKeyboardButton("🚪 Access", CallbackTicketCategory+":access"),
		),
		NewInlineKeyboardRow(
			NewInlineKeyboardButton("🔧 Technical", CallbackTicketCategory+":technical"),
			NewInlineKeyboardButton("❓ Other", CallbackTicketCategory+":other"),
		),
	)
}

// TicketCloseKeyboard closes ticket id.
func TicketCloseKeyboard(id uint) *InlineKeyboardMarkup {
	return NewInlineKeyboard(NewInlineKeyboardRow(
		NewInlineKeyboardButton("✔️ Close", CallbackWithID(CallbackTicketClose, int64(id))),
	))
}
