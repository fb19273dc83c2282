package middleware

import (
	"net/http"

	"bitwise74/recipe-api/internal/access"

	"github.com/gin-gonic/gin"
)

// RequireRole only lets callers with one of the given roles through. It
// has to run after the JWT middleware.
func RequireRole(roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := access.FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail":    "Authentication credentials were not provided.",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		if !p.Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"detail":    "You do not have permission to perform this action.",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}

func RequireStaff() gin.HandlerFunc {
	return RequireRole(access.RoleStaff)
}
