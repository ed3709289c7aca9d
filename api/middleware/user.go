package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unimailhq/unimail/internal/utils"
)

// UserContextEnricher resolves the authenticated user from the identity
// headers and stores it on the gin context for the handlers. Requests with no
// user identity are rejected before any handler runs.
func UserContextEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := firstHeader(c, utils.UserIdHeaders)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set("UserId", userID)
		c.Set("UserEmail", firstHeader(c, utils.UserEmailHeaders))
		c.Next()
	}
}

func firstHeader(c *gin.Context, names []string) string {
	for _, name := range names {
		if value := c.GetHeader(name); value != "" {
			return value
		}
	}
	return ""
}
