// README: Rate limiting middleware; sliding-window guard per operation and
// caller.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/ratelimit"
)

// RateLimit guards one operation, keyed by the authenticated user when
// present, falling back to the client IP. The limiter store failing is
// logged and fails open.
func RateLimit(limiter *ratelimit.Limiter, operation string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := UserID(c)
		if caller == "" {
			caller = c.ClientIP()
		}

		res, err := limiter.Allow(c.Request.Context(), operation+":"+caller)
		if err != nil {
			log.Warn("rate limit store error",
				zap.String("operation", operation),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", res.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetAt))

		if !res.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", limiter.RetryAfterSeconds(res)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
