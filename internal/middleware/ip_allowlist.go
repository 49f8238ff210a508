package middleware

import (
	"github.com/gin-gonic/gin"

	"gitlab-metrics/pkg/response"
)

// WebhookIPAllowList rejects callers outside the configured webhook IP
// allow-list. Without a list every caller passes.
func (m Middleware) WebhookIPAllowList() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.security == nil {
			c.Next()
			return
		}
		if err := m.security.ValidateIPAddress(c.Request); err != nil {
			m.l.Warnf(c.Request.Context(), "middleware.WebhookIPAllowList: %v", err)
			response.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
