package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the correlation header echoed on every response.
const HeaderRequestID = "X-Request-Id"

const contextRequestID = "request_id"

// maxRequestIDLength caps inbound ids so a hostile header cannot bloat
// logs or spans.
const maxRequestIDLength = 128

// RequestID propagates the caller's correlation id, generating one when
// the header is absent, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(contextRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFromContext returns the request id stored by the middleware.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(contextRequestID)
}
