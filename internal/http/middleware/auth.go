// README: Identity pass-through; session issuance lives in an external
// identity service, the edge proxy verifies tokens and forwards the user id.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIDKey = "spotly.user_id"

// Auth requires the upstream-verified user identity header.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
