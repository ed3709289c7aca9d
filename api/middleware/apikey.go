package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const ApiKeyHeader = "X-UNIMAIL-API-KEY"

// ApiKeyChecker rejects requests that do not carry the shared service key.
func ApiKeyChecker(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(ApiKeyHeader) != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
