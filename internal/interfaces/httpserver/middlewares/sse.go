package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareSSE configures the HTTP response for Server Sent Events. The
// transport must support flushing before any header is committed, so a
// failure can still answer with a plain JSON status. X-Accel-Buffering
// disables proxy buffering so chunks reach the client as they are
// flushed.
func PrepareSSE(c *gin.Context) (http.Flusher, bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil, false
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	return flusher, true
}
