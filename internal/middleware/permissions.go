// internal/middleware/permissions.go
package middleware

import (
	"net/http"

	"abiahub/internal/models"

	"github.com/gin-gonic/gin"
)

// RequirePermission rejects the request unless the authenticated user's
// role grants the permission. Must run after AuthMiddleware.
func RequirePermission(permission models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization required",
				"details": "no role in context",
			})
			c.Abort()
			return
		}

		role := models.RoleFromString(roleValue.(string))
		if !role.HasPermission(permission) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Insufficient permissions",
				"details": string(permission) + " required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole rejects the request unless the user holds exactly one of
// the given roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization required",
				"details": "no role in context",
			})
			c.Abort()
			return
		}

		role := models.RoleFromString(roleValue.(string))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Insufficient permissions",
			"details": "role not allowed for this operation",
		})
		c.Abort()
	}
}

// RequireOfficial allows any official role through, rejecting citizens.
func RequireOfficial() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization required",
				"details": "no role in context",
			})
			c.Abort()
			return
		}

		role := models.RoleFromString(roleValue.(string))
		if role == models.RoleCitizen {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Insufficient permissions",
				"details": "official role required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
