package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	rule    ratelimit.Rule
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.RateLimiter, perMinute int, logger logger.Interface) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		rule:    ratelimit.Rule{Limit: perMinute, Window: time.Minute},
		logger:  logger,
	}
}

// Limit returns a Gin middleware that enforces the limit. When Redis is
// unreachable the request is let through.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rule.Limit <= 0 {
			c.Next()
			return
		}

		allowed, err := rl.limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP(), rl.rule)
		if err != nil {
			rl.logger.Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", "60")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
