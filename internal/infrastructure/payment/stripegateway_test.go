package payment

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/orris-inc/gatekeeper/internal/application/billing"
	"github.com/orris-inc/gatekeeper/internal/shared/config"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

const testSecret = "whsec_test_secret"

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestParseStripeEvent_CheckoutCompleted(t *testing.T) {
	payload := `{
		"id": "evt_checkout",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"amount_total": 1500,
			"currency": "eur",
			"client_reference_id": "501",
			"customer": "cus_alice",
			"subscription": "sub_alice",
			"metadata": {"telegram_user_id": "501"}
		}}
	}`

	ev, err := ParseStripeEvent([]byte(payload), sign(t, payload), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_checkout", ev.ID)
	assert.Equal(t, billing.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, int64(501), ev.UserID)
	assert.Equal(t, "cus_alice", ev.CustomerRef)
	assert.Equal(t, "sub_alice", ev.SubscriptionRef)
	assert.Equal(t, "cs_test_1", ev.PaymentRef)
	assert.Equal(t, int64(1500), ev.AmountCents)
	assert.Equal(t, "eur", ev.Currency)
}

func TestParseStripeEvent_ClientReferenceFallback(t *testing.T) {
	payload := `{"id":"evt_2","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_2","object":"checkout.session","client_reference_id":"777","customer":"cus_x"}}}`

	ev, err := ParseStripeEvent([]byte(payload), sign(t, payload), testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(777), ev.UserID)
}

func TestParseStripeEvent_InvoiceRenewal(t *testing.T) {
	end := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	payload := `{"id":"evt_inv","object":"event","type":"invoice.payment_succeeded",
		"data":{"object":{"id":"in_1","object":"invoice","amount_paid":1500,"amount_due":1500,"currency":"eur",
		"billing_reason":"subscription_cycle","customer":"cus_alice","subscription":"sub_alice",
		"lines":{"object":"list","data":[{"id":"il_1","object":"line_item","period":{"start":1772323200,"end":` +
		strconv.FormatInt(end.Unix(), 10) + `}}]}}}}`

	ev, err := ParseStripeEvent([]byte(payload), sign(t, payload), testSecret)
	require.NoError(t, err)
	assert.Equal(t, billing.EventInvoicePaid, ev.Type)
	assert.Equal(t, "subscription_cycle", ev.BillingReason)
	assert.Equal(t, "cus_alice", ev.CustomerRef)
	assert.Equal(t, "in_1", ev.PaymentRef)
	require.NotNil(t, ev.PeriodEnd)
	assert.True(t, end.Equal(*ev.PeriodEnd))
}

func TestParseStripeEvent_BadSignature(t *testing.T) {
	payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`

	_, err := ParseStripeEvent([]byte(payload), "t=1,v1=deadbeef", testSecret)
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)

	tampered := `{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{"id":"x"}}}`
	_, err = ParseStripeEvent([]byte(tampered), sign(t, payload), testSecret)
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)

	_, err = ParseStripeEvent([]byte(payload), sign(t, payload), "")
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)
}

func TestNewStripeGateway_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewStripeGateway(config.BillingConfig{}, logger.NewNop()))
	assert.NotNil(t, NewStripeGateway(config.BillingConfig{StripeSecretKey: "sk_test_x"}, logger.NewNop()))
}
