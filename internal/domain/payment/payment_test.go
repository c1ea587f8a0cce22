package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	now := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

	p, err := NewPayment(501, "cs_test_1", 2000, "eur", StatusSucceeded, KindInitial, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), p.AmountCents())
	assert.Equal(t, KindInitial, p.Kind())

	_, err = NewPayment(501, "", 2000, "eur", StatusSucceeded, KindInitial, now)
	assert.Error(t, err)
	_, err = NewPayment(501, "in_1", -1, "eur", StatusFailed, KindRenewal, now)
	assert.Error(t, err)
	_, err = NewPayment(501, "in_1", 1, "eur", Status("refunded"), KindRenewal, now)
	assert.Error(t, err)
}
