// Package auth issues and verifies the bearer tokens of the admin HTTP API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orris-inc/gatekeeper/internal/shared/biztime"
)

const (
	issuer                  = "gatekeeper"
	defaultAccessExpMinutes = 60
)

var ErrInvalidToken = errors.New("invalid token")

// Claims binds a token to an admin's Telegram id. Admin status itself is
// re-checked on every request, so a removed admin's token stops working.
type Claims struct {
	AdminID int64 `json:"admin_id"`
	jwt.RegisteredClaims
}

type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
}

type JWTService struct {
	secret           []byte
	accessExpMinutes int
	clock            biztime.Clock
}

func NewJWTService(secret string, accessExpMinutes int) *JWTService {
	if accessExpMinutes <= 0 {
		accessExpMinutes = defaultAccessExpMinutes
	}
	return &JWTService{
		secret:           []byte(secret),
		accessExpMinutes: accessExpMinutes,
		clock:            biztime.NowUTC,
	}
}

// WithClock replaces the time source.
func (s *JWTService) WithClock(clock biztime.Clock) *JWTService {
	s.clock = clock
	return s
}

// Enabled reports whether a signing secret is configured.
func (s *JWTService) Enabled() bool {
	return len(s.secret) > 0
}

// Generate signs an access token for adminID. ttl overrides the configured
// lifetime when positive.
func (s *JWTService) Generate(adminID int64, ttl time.Duration) (*Token, error) {
	if !s.Enabled() {
		return nil, errors.New("jwt secret is not configured")
	}
	if ttl <= 0 {
		ttl = time.Duration(s.accessExpMinutes) * time.Minute
	}
	now := s.clock()
	exp := now.Add(ttl)

	claims := &Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(adminID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		ExpiresAt:   exp,
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AdminID <= 0 || claims.Subject != strconv.FormatInt(claims.AdminID, 10) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessExpMinutes returns the access token expiration time in minutes
func (s *JWTService) AccessExpMinutes() int {
	return s.accessExpMinutes
}
