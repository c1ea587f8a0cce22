package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/auth"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

const (
	ContextKeyAdminID   = "admin_id"
	ContextKeyAdminRole = "admin_role"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RoleResolver looks the token subject up in the admin roster.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID int64) (admin.Role, bool, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	roster RoleResolver
	logger logger.Interface
}

func NewAuthMiddleware(tokens TokenVerifier, roster RoleResolver, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		roster: roster,
		logger: logger,
	}
}

// RequireAdmin accepts a bearer token whose subject is still on the roster.
// A token issued to an admin who was later removed stops working at once.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		role, ok, err := m.roster.RoleOf(c.Request.Context(), claims.AdminID)
		if err != nil {
			m.logger.Errorw("failed to check roster", "error", err, "admin_id", claims.AdminID)
			utils.ErrorResponse(c, http.StatusInternalServerError, "failed to check admin roster")
			c.Abort()
			return
		}
		if !ok {
			m.logger.Warnw("token subject is not an admin", "admin_id", claims.AdminID)
			utils.ErrorResponse(c, http.StatusForbidden, "not an admin")
			c.Abort()
			return
		}

		c.Set(ContextKeyAdminID, claims.AdminID)
		c.Set(ContextKeyAdminRole, role.String())

		c.Next()
	}
}

// AdminID returns the id set by RequireAdmin.
func AdminID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextKeyAdminID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
