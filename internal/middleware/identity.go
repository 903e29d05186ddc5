package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdentityMiddleware trusts the identity headers set by the upstream auth
// proxy. Token verification happens there; by the time a request reaches this
// service the acting user and scope are already resolved.
type IdentityMiddleware struct{}

func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

// RequireIdentity extracts X-User-ID (optional for anonymous reads) and
// X-Scope-ID (required) into the request context.
func (m *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		scopeStr := c.GetHeader("X-Scope-ID")
		if scopeStr == "" {
			// Fallback to query parameter (useful for WebSockets)
			scopeStr = c.Query("scope_id")
		}
		if _, err := uuid.Parse(scopeStr); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "scope required"})
			c.Abort()
			return
		}
		c.Set("scope_id", scopeStr)

		if userStr := c.GetHeader("X-User-ID"); userStr != "" {
			if _, err := uuid.Parse(userStr); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
				c.Abort()
				return
			}
			c.Set("user_id", userStr)
		}

		c.Next()
	}
}

// RequireUser rejects requests whose identity header carried no user.
func (m *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
