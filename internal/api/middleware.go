package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"alerts-service/internal/identity"
	"alerts-service/internal/logging"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// AuthMiddleware verifies the bearer token against the identity service
// and stores the resolved user on the request context.
func AuthMiddleware(auth identity.Authenticator, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Errorf("Credential verification failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "verification failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
