package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/auth"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRoster map[int64]admin.Role

func (f fakeRoster) RoleOf(_ context.Context, userID int64) (admin.Role, bool, error) {
	role, ok := f[userID]
	return role, ok, nil
}

func newAuthEngine(t *testing.T, roster fakeRoster) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtSvc := auth.NewJWTService("test-secret", 60)
	mw := NewAuthMiddleware(jwtSvc, roster, logger.NewNop())

	r := gin.New()
	r.GET("/admin", mw.RequireAdmin(), func(c *gin.Context) {
		id, ok := AdminID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"admin_id": id, "role": c.GetString(ContextKeyAdminRole)})
	})
	return r, jwtSvc
}

func doGet(r http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdmin(t *testing.T) {
	r, jwtSvc := newAuthEngine(t, fakeRoster{42: admin.RoleSuperAdmin, 7: admin.RoleAdmin})

	token, err := jwtSvc.Generate(42, time.Hour)
	require.NoError(t, err)
	w := doGet(r, "/admin", "Bearer "+token.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin_id":42`)
	assert.Contains(t, w.Body.String(), `"role":"super_admin"`)

	removed, err := jwtSvc.Generate(99, time.Hour)
	require.NoError(t, err)
	w = doGet(r, "/admin", "Bearer "+removed.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/admin", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := NewRateLimiter(ratelimit.NewRedisRateLimiter(client, "test"), 2, logger.NewNop())
	r := gin.New()
	r.GET("/ping", rl.Limit(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, doGet(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/ping", "").Code)
	w := doGet(r, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rl := NewRateLimiter(ratelimit.NewRedisRateLimiter(client, "test"), 1, logger.NewNop())
	r := gin.New()
	r.GET("/ping", rl.Limit(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, doGet(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/ping", "").Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := doGet(r, "/boom", "Bearer secret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error occurred")
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), Logger(logger.NewNop()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := doGet(r, "/ok", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
