package middleware

import (
	"net/http"

	"github.com/bincms/bincms/internal/service"
	"github.com/gin-gonic/gin"
)

// RequirePermission gates a route on one permission code. The principal's
// role is resolved against the grant tables on every request, so a grant-set
// replacement takes effect without re-login.
func RequirePermission(roles *service.RoleService, permCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := Principal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		codes, err := roles.ResolvePermissions(principal.RoleCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "permission check failed"})
			c.Abort()
			return
		}
		for _, code := range codes {
			if code == permCode {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		c.Abort()
	}
}
