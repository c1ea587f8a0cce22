package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

// EscapeHTML escapes HTML special characters for safe Telegram message formatting
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Bot message templates (HTML parse mode).
const (
	MsgWelcome = "👋 <b>Welcome</b>\n\n" +
		"This bot manages access to the community's private channel and groups.\n\n" +
		"1️⃣ Request access with /request\n" +
		"2️⃣ Wait for an admin to review it\n" +
		"3️⃣ Sign the consent form with /consent\n" +
		"4️⃣ Subscribe with /subscribe\n\n" +
		"Use /status at any time to see where you are."

	MsgHelpUser = "🤖 <b>Commands</b>\n\n" +
		"/request - ask to join\n" +
		"/status - your current status\n" +
		"/consent - fill in and sign the consent form\n" +
		"/otp <code>&lt;code&gt;</code> - confirm the signature\n" +
		"/newcode - get a new confirmation code\n" +
		"/subscribe - pay the subscription\n" +
		"/manage - manage your subscription\n" +
		"/support - contact the staff\n" +
		"/cancel - stop the current form"

	MsgHelpAdmin = "\n\n🛡 <b>Admin</b>\n\n" +
		"/pending - requests waiting for a decision\n" +
		"/approve @user, /reject @user, /reconsider @user\n" +
		"/tickets - open support tickets, /close <code>&lt;id&gt;</code>\n" +
		"/stats - community numbers\n" +
		"/admins, /addadmin <code>&lt;id&gt;</code>, /removeadmin <code>&lt;id&gt;</code>"

	MsgGenericError = "❌ Something went wrong. Please try again later."
	MsgUnknownInput = "I did not understand that. Send /help to see the commands."
	MsgNotAllowed   = "⛔ You are not allowed to do that."
	MsgPrivateOnly  = "Please write to me in a private chat."
)

// Admission
const (
	MsgRequestSent      = "📨 <b>Request sent</b>\n\nAn admin will review it shortly. You will get a message here."
	MsgRequestPending   = "⏳ Your request is already waiting for an admin."
	MsgRequestRejected  = "🚫 Your request was declined. Contact /support if you think this is a mistake."
	MsgRequestNotNeeded = "✅ Your request was already approved. Check /status for the next step."

	MsgDecisionApproved     = "🎉 <b>Your request was approved</b>\n\nNext step: sign the consent form with /consent."
	MsgDecisionRejected     = "🚫 <b>Your request was declined.</b>"
	MsgDecisionReconsidered = "🔄 Your request can be sent again. Use /request."
)

// Consent form
const (
	MsgConsentNotAvailable = "The consent form is available once your request is approved. Check /status."
	MsgConsentDone         = "✅ You have already signed the consent form."
	MsgConsentAskFullName  = "📝 <b>Consent form</b> (1/5)\n\nSend your <b>full name</b> as on your ID document."
	MsgConsentAskBirthDate = "📝 (2/5) Send your <b>date of birth</b> as DD/MM/YYYY."
	MsgConsentAskPlace     = "📝 (3/5) Send your <b>place of birth</b>."
	MsgConsentAskAddress   = "📝 (4/5) Send your <b>residence address</b> (street, number, postal code, city)."
	MsgConsentDeclined     = "The consent form was discarded. Send /consent to start again."
	MsgConsentCancelled    = "Cancelled."
	MsgConsentExpiredDraft = "The form timed out. Send /consent to start again."

	MsgOTPNoPending = "There is no signature waiting for a code. Send /consent to fill in the form."
	MsgOTPExpired   = "⌛ The code has expired. Tap the button or send /newcode for a new one."
	MsgOTPExhausted = "🔒 Too many wrong attempts. Tap the button or send /newcode for a new code."
	MsgOTPCooldown  = "Please wait a minute before asking for another code."
	MsgOTPUsage     = "Usage: <code>/otp 123456</code>"
)

// Subscription
const (
	MsgSubscribeNotYet   = "You can subscribe once your request is approved and the consent form is signed. Check /status."
	MsgSubscribeReady    = "💳 <b>Subscription</b>\n\nTap the button to pay securely."
	MsgManageReady       = "⚙️ Tap the button to manage your subscription."
	MsgNoBillingAccount  = "You have no subscription to manage yet. Use /subscribe."
	MsgBillingDisabled   = "Payments are not available right now."
	MsgAlreadySubscribed = "✅ Your subscription is already active. Use /manage to change it."
)

// Support
const (
	MsgSupportChooseCategory = "🎫 <b>Support</b>\n\nWhat is it about?"
	MsgSupportAskDescription = "Describe the problem in a few sentences (at least 10 characters). /cancel to stop."
	MsgSupportTooShort       = "Please add a bit more detail (at least 10 characters)."
)

// Admin
const (
	MsgAdminUsage         = "Usage: <code>/%s @username</code> or <code>/%s &lt;id&gt;</code>"
	MsgAdminUserNotFound  = "No member found with that username or id."
	MsgAdminNoPending     = "No pending requests."
	MsgAdminNoTickets     = "No open tickets."
	MsgAdminWrongStage    = "That member is not in a state where this is possible."
	MsgAdminSuperOnly     = "Only super admins can change the admin list."
	MsgAdminRosterChanged = "✅ Done."
	MsgAdminNoChange      = "Nothing changed."
	MsgAdminIDUsage       = "Usage: <code>/%s &lt;id&gt;</code>"
	MsgTicketNotFound     = "No ticket with that id."
)

// DecisionNote replaces the buttons under an access request once decided.
func DecisionNote(userID int64, decision string, adminName string) string {
	return fmt.Sprintf("🆔 <code>%d</code>\n\n%s by %s", userID, EscapeHTML(decision), EscapeHTML(adminName))
}

// AdminListMessage renders /admins. Each entry is "id role".
func AdminListMessage(entries [][2]string) string {
	var b strings.Builder
	b.WriteString("🛡 <b>Admins</b>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• <code>%s</code> %s", EscapeHTML(e[0]), EscapeHTML(e[1]))
	}
	return b.String()
}

// StatsView is what /stats shows.
type StatsView struct {
	Total       int64
	Pending     int64
	Approved    int64
	Consented   int64
	Active      int64
	OpenTickets int64
	NewThisWeek int64
	PaidCents   int64
	MonthCents  int64
	Currency    string
}

// StatsMessage renders /stats.
func StatsMessage(v StatsView) string {
	return fmt.Sprintf("📈 <b>Community</b>\n\n"+
		"Members: %d (new this week: %d)\nPending requests: %d\nApproved: %d\nConsent signed: %d\n"+
		"Active subscriptions: %d\nOpen tickets: %d\nCollected this month: %s\nCollected in total: %s",
		v.Total, v.NewThisWeek, v.Pending, v.Approved, v.Consented, v.Active, v.OpenTickets,
		FormatAmount(v.MonthCents, v.Currency), FormatAmount(v.PaidCents, v.Currency))
}

// Stage explains a member stage in one line.
func StageLine(stage string) string {
	switch stage {
	case "new":
		return "You have not requested access yet. Use /request."
	case "pending":
		return "Your request is waiting for an admin."
	case "rejected":
		return "Your request was declined."
	case "awaiting_consent":
		return "Approved. Next: sign the consent form with /consent."
	case "consent_pending_otp":
		return "Consent form sent. Confirm it with the code you received (/otp <code>&lt;code&gt;</code>)."
	case "approved_not_subscribed":
		return "Ready to subscribe. Use /subscribe."
	case "subscribed":
		return "Subscription active. Welcome aboard!"
	default:
		return "Unknown status."
	}
}

// StatusMessage renders /status.
func StatusMessage(stage string, activeUntil *time.Time, totalPayments int) string {
	var b strings.Builder
	b.WriteString("📊 <b>Your status</b>\n\n")
	b.WriteString(StageLine(stage))
	if activeUntil != nil {
		fmt.Fprintf(&b, "\n\nPaid until: <b>%s</b>", biztime.FormatDate(*activeUntil))
	}
	if totalPayments > 0 {
		fmt.Fprintf(&b, "\nPayments: %d", totalPayments)
	}
	return b.String()
}

// FieldErrorMessage asks the member to fix one answer.
func FieldErrorMessage(reason string) string {
	return fmt.Sprintf("⚠️ %s. Please try again.", EscapeHTML(reason))
}

// ConsentSummary shows the collected data with the document before acceptance.
func ConsentSummary(fullName, birthDate, birthPlace, address, documentHTML string) string {
	return fmt.Sprintf("📄 <b>Consent document</b>\n\n%s\n\n"+
		"<b>Your data</b>\nName: %s\nBorn: %s, %s\nResidence: %s\n\n"+
		"📝 (5/5) Do you accept the document?",
		documentHTML,
		EscapeHTML(fullName), EscapeHTML(birthDate), EscapeHTML(birthPlace), EscapeHTML(address))
}

// OTPMessage delivers a confirmation code.
func OTPMessage(code string, expiresAt time.Time) string {
	return fmt.Sprintf("🔐 Your confirmation code is <code>%s</code>\n\n"+
		"It is valid until %s. Reply with the code, or send /otp %s.",
		code, biztime.FormatInBizTimezone(expiresAt, "15:04"), code)
}

// WrongCodeMessage reports a mismatch and the attempts left.
func WrongCodeMessage(remaining int) string {
	if remaining <= 0 {
		return MsgOTPExhausted
	}
	return fmt.Sprintf("❌ Wrong code. %d attempts left.", remaining)
}

// ConsentConfirmedMessage confirms the signature to the member.
func ConsentConfirmedMessage(consentID, documentVersion string) string {
	return fmt.Sprintf("✅ <b>Consent signed</b>\n\nReference: <code>%s</code>\nDocument version: %s\n\n"+
		"Next step: /subscribe.", consentID, EscapeHTML(documentVersion))
}

// JoinDeclinedMessage explains why a join request was declined.
func JoinDeclinedMessage(reason string) string {
	return fmt.Sprintf("🚪 Your request to join was declined: <b>%s</b>.\n\nSend /status to see what is missing.",
		EscapeHTML(reason))
}

// AccessRequestedMessage alerts an admin.
func AccessRequestedMessage(displayName, username string, userID int64) string {
	who := EscapeHTML(displayName)
	if username != "" {
		who += " (@" + EscapeHTML(username) + ")"
	}
	return fmt.Sprintf("🆕 <b>Access request</b>\n\n%s\nID: <code>%d</code>", who, userID)
}

// ActivatedMessage thanks the member and hands out the invite links.
func ActivatedMessage(renewal bool, activeUntil *time.Time, links []string) string {
	var b strings.Builder
	if renewal {
		b.WriteString("🔁 <b>Subscription renewed</b>")
	} else {
		b.WriteString("🎉 <b>Subscription active</b>")
	}
	if activeUntil != nil {
		fmt.Fprintf(&b, "\n\nPaid until: <b>%s</b>", biztime.FormatDate(*activeUntil))
	}
	if len(links) > 0 {
		b.WriteString("\n\nJoin here:")
		for _, l := range links {
			b.WriteString("\n• " + EscapeHTML(l))
		}
	}
	return b.String()
}

// ExpiringMessage reminds the member to renew.
func ExpiringMessage(activeUntil *time.Time) string {
	until := ""
	if activeUntil != nil {
		until = biztime.FormatDate(*activeUntil)
	}
	return fmt.Sprintf("⏰ Your subscription ends on <b>%s</b>. Renew it to keep access.", until)
}

const (
	MsgExpired       = "⌛ <b>Your subscription has ended.</b>\n\nUse /subscribe to come back at any time."
	MsgCancelled     = "Your subscription will not renew. You keep access until the paid period ends."
	MsgPaymentFailed = "⚠️ <b>Payment failed</b>\n\nPlease update your payment method with /manage."
)

// PaymentFailedStaffMessage alerts staff about a failed charge.
func PaymentFailedStaffMessage(displayName string, userID, amountCents int64, currency string) string {
	return fmt.Sprintf("💳 <b>Payment failed</b>\n\n%s (<code>%d</code>)\nAmount: %s",
		EscapeHTML(displayName), userID, FormatAmount(amountCents, currency))
}

// TicketOpenedMessage alerts staff about a new ticket.
func TicketOpenedMessage(id uint, displayName string, userID int64, category, priority, description string) string {
	return fmt.Sprintf("🎫 <b>Ticket #%d</b> [%s, %s]\n\nFrom: %s (<code>%d</code>)\n\n%s",
		id, EscapeHTML(category), EscapeHTML(priority), EscapeHTML(displayName), userID, EscapeHTML(description))
}

// TicketCreatedMessage confirms a ticket to the member.
func TicketCreatedMessage(id uint) string {
	return fmt.Sprintf("✅ Ticket #%d opened. The staff will answer here.", id)
}

// FormatAmount renders minor units as "12.50 EUR".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
