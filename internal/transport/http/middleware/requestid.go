package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextRequestIDKey = "request_id"
	headerRequestID     = "X-Request-Id"
)

// RequestID attaches a correlation id to every request. An incoming
// X-Request-Id is honored so callers can trace across services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}
