package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TestEndpointsOnly hides diagnostic routes unless they are enabled.
func TestEndpointsOnly(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "Endpoint not found",
				"message": "Test endpoints are disabled in production",
			})
			return
		}
		c.Next()
	}
}
