package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/log"
)

const HeaderRequestID = "X-Request-ID"

// RequestID attaches a request id to the request context so every log line
// of the request carries it. The platform delivery UUID is reused when present.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(webhook.HeaderEventUUID)
		if id == "" {
			id = c.GetHeader(HeaderRequestID)
		}
		if id == "" && m.newID != nil {
			id = m.newID()
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
