package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS sets the headers the shop's browser frontend needs. The origin is
// wildcard because auth travels in the Authorization header, never cookies.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		// Retry-After is set by the rate limiter on 429s
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
