package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bincms/bincms/internal/auth"
	"github.com/gin-gonic/gin"
)

// PrincipalContextKey is the key used to store the validated principal in the
// Gin context.
const PrincipalContextKey = "principal"

// Authenticate validates the bearer token and stores the principal in the
// request context.
func Authenticate(provider auth.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		principal, err := provider.Validate(parts[1])
		if err != nil {
			slog.Warn("Invalid token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(PrincipalContextKey, principal)
		c.Next()
	}
}

// Principal extracts the validated principal from the Gin context.
func Principal(c *gin.Context) (*auth.Principal, bool) {
	v, exists := c.Get(PrincipalContextKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}
