package middleware

import (
	"net/http"
	"strings"

	"courier_platform/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminJWT authenticates an admin bearer token and stores admin_id in the
// request context.
func AdminJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		adminID, err := service.ParseJWT(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("admin_id", adminID)
		c.Next()
	}
}
