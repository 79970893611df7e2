package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareSSE sets the response headers for a server-sent-events stream and
// returns the flusher used to push each frame out as it is written.
// X-Accel-Buffering stops nginx-style proxies from buffering the stream.
func PrepareSSE(c *gin.Context) (http.Flusher, bool) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	flusher, ok := c.Writer.(http.Flusher)
	return flusher, ok
}
