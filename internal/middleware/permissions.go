// internal/middleware/permissions.go

package middleware

import (
	"net/http"

	"reportes-viales/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireRole создаёт middleware для проверки конкретной роли
// 🔒 Используется для защиты эндпоинтов на уровне Backend
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			c.Abort()
			return
		}

		roleStr, ok := roleInterface.(string)
		if !ok || roleStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid user role",
			})
			c.Abort()
			return
		}

		userRole := models.UserRole(roleStr)
		if !userRole.IsValid() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Invalid role",
			})
			c.Abort()
			return
		}

		if userRole != models.UserRole(role) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":         "Insufficient permissions",
				"required_role": role,
				"user_role":     roleStr,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAnyRole создаёт middleware для проверки одной из возможных ролей
// 🔒 Используется когда endpoint доступен для нескольких ролей
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			c.Abort()
			return
		}

		roleStr, ok := roleInterface.(string)
		if !ok || roleStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid user role",
			})
			c.Abort()
			return
		}

		userRole := models.UserRole(roleStr)

		hasRole := false
		for _, allowedRole := range roles {
			if userRole == models.UserRole(allowedRole) {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":          "Insufficient permissions",
				"required_roles": roles,
				"user_role":      roleStr,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
