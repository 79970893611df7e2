package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID makes sure every request carries an X-Request-Id, generating one
// when the caller sent none, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the id RequestID stored for this request, or
// empty when the middleware did not run.
func RequestIDFromContext(c *gin.Context) string {
	val, _ := c.Get(requestIDHeader)
	id, _ := val.(string)
	return id
}
