package consent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var issuedAt = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

func testAnagraphic() Anagraphic {
	return Anagraphic{
		FullName:         "Alice Rossi",
		BirthDate:        time.Date(1996, 4, 2, 0, 0, 0, 0, time.UTC),
		BirthPlace:       "Bologna",
		ResidenceAddress: "Via Roma 12, 40121 Bologna",
	}
}

func newPendingRecord(t *testing.T, code string) *Record {
	t.Helper()
	r, err := NewRecord("c0a8012e-0000-4000-8000-000000000001", 501, testAnagraphic(), code, "v1", issuedAt)
	require.NoError(t, err)
	return r
}

func TestNewRecord(t *testing.T) {
	r := newPendingRecord(t, "012345")
	assert.Equal(t, 0, r.OTPAttempts())
	assert.False(t, r.IsConfirmed())
	assert.Equal(t, issuedAt, r.OTPGeneratedAt())
	assert.Equal(t, Fingerprint(501, "v1", issuedAt), r.DocumentHash())

	_, err := NewRecord("id", 501, testAnagraphic(), "12345", "v1", issuedAt)
	assert.Error(t, err)
	_, err = NewRecord("id", 501, testAnagraphic(), "12a456", "v1", issuedAt)
	assert.Error(t, err)
}

func TestRecord_VerifySuccess(t *testing.T) {
	r := newPendingRecord(t, "654321")
	at := issuedAt.Add(9 * time.Minute)

	require.NoError(t, r.Verify("654321", at, DefaultPolicy()))
	assert.True(t, r.IsConfirmed())
	require.NotNil(t, r.ConfirmedAt())
	assert.Equal(t, at, *r.ConfirmedAt())
	assert.Equal(t, 1, r.OTPAttempts(), "success also counts as an attempt")

	assert.ErrorIs(t, r.Verify("654321", at, DefaultPolicy()), ErrAlreadyConfirmed)
}

func TestRecord_VerifyExpiredBeatsWrongCode(t *testing.T) {
	r := newPendingRecord(t, "654321")
	late := issuedAt.Add(10*time.Minute + time.Second)

	err := r.Verify("654321", late, DefaultPolicy())
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrWrongCode)
	assert.Equal(t, 0, r.OTPAttempts(), "expiry does not consume attempts")

	assert.ErrorIs(t, r.Verify("000000", late, DefaultPolicy()), ErrExpired)
}

func TestRecord_VerifyExactlyAtWindowEdge(t *testing.T) {
	r := newPendingRecord(t, "654321")
	require.NoError(t, r.Verify("654321", issuedAt.Add(10*time.Minute), DefaultPolicy()))
}

func TestRecord_AttemptExhaustion(t *testing.T) {
	r := newPendingRecord(t, "111111")
	at := issuedAt.Add(time.Minute)

	for i := 1; i <= 5; i++ {
		err := r.Verify("999999", at, DefaultPolicy())
		var wrong *WrongCodeError
		require.True(t, errors.As(err, &wrong), "attempt %d", i)
		assert.Equal(t, 5-i, wrong.Remaining)
		assert.ErrorIs(t, err, ErrWrongCode)
	}

	err := r.Verify("111111", at, DefaultPolicy())
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.False(t, r.IsConfirmed())
	assert.Equal(t, 5, r.OTPAttempts(), "exhausted path does not increment")
}

func TestRecord_RegenerateResetsAttempts(t *testing.T) {
	r := newPendingRecord(t, "111111")
	at := issuedAt.Add(time.Minute)
	for i := 0; i < 5; i++ {
		_ = r.Verify("999999", at, DefaultPolicy())
	}
	consentID := r.ConsentID()
	hash := r.DocumentHash()

	regenAt := issuedAt.Add(20 * time.Minute)
	require.NoError(t, r.Regenerate("222222", regenAt))
	assert.Equal(t, 0, r.OTPAttempts())
	assert.Equal(t, regenAt, r.OTPGeneratedAt())
	assert.Equal(t, consentID, r.ConsentID())
	assert.Equal(t, hash, r.DocumentHash())

	require.NoError(t, r.Verify("222222", regenAt.Add(time.Minute), DefaultPolicy()))
	assert.ErrorIs(t, r.Regenerate("333333", regenAt), ErrAlreadyConfirmed)
}

func TestRandomCode(t *testing.T) {
	seenLeadingZero := false
	for i := 0; i < 2000; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		require.True(t, IsCodeShaped(code), code)
		if code[0] == '0' {
			seenLeadingZero = true
		}
	}
	assert.True(t, seenLeadingZero, "leading zeros must be possible")
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(501, "v1", issuedAt)
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint(501, "v1", issuedAt))
	assert.NotEqual(t, a, Fingerprint(502, "v1", issuedAt))
	assert.NotEqual(t, a, Fingerprint(501, "v2", issuedAt))
	assert.NotEqual(t, a, Fingerprint(501, "v1", issuedAt.Add(time.Second)))
}
