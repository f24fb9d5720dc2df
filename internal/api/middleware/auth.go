package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rileyflames/marketplace/internal/auth"
	"github.com/rileyflames/marketplace/internal/models"
)

const (
	// ContextKeyUserID holds the key for the user ID (hex string) in Gin context.
	ContextKeyUserID = "userID"
	// ContextKeyRole holds the key for the user role in Gin context.
	ContextKeyRole = "role"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// ModeratorMiddleware requires a role with moderation privileges.
// Assumes AuthMiddleware runs first.
func ModeratorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Moderator privileges required"})
			return
		}
		r, ok := role.(models.Role)
		if !ok || !r.IsModerator() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Moderator privileges required"})
			return
		}
		c.Next()
	}
}
