package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewJWTService("s3cret", 30).WithClock(func() time.Time { return now })

	tok, err := svc.Generate(42, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), tok.ExpiresIn)
	assert.Equal(t, now.Add(30*time.Minute), tok.ExpiresAt)

	claims, err := svc.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AdminID)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewJWTService("s3cret", 30).WithClock(func() time.Time { return now })
	tok, err := svc.Generate(42, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"wrong secret", NewJWTService("other", 30).WithClock(func() time.Time { return now }), tok.AccessToken},
		{"expired", NewJWTService("s3cret", 30).WithClock(func() time.Time { return now.Add(2 * time.Minute) }), tok.AccessToken},
		{"garbage", svc, "not.a.token"},
		{"no secret", NewJWTService("", 30), tok.AccessToken},
		{"none alg", svc, noneToken(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTService_GenerateWithoutSecret(t *testing.T) {
	_, err := NewJWTService("", 30).Generate(1, 0)
	assert.Error(t, err)
}

func noneToken(t *testing.T) string {
	t.Helper()
	claims := &Claims{AdminID: 42, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "42"}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}
