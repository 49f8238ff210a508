package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/internal/ratelimit"
)

// AccessLog writes one line per request once the handler chain has finished.
func (m Middleware) AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		latency := time.Since(start)
		client := ratelimit.ClientKey(c.Request)

		switch {
		case status >= 500:
			m.l.Errorf(ctx, "%s %s %d %s client=%s", c.Request.Method, c.Request.URL.Path, status, latency, client)
		case status >= 400:
			m.l.Warnf(ctx, "%s %s %d %s client=%s", c.Request.Method, c.Request.URL.Path, status, latency, client)
		default:
			m.l.Infof(ctx, "%s %s %d %s client=%s", c.Request.Method, c.Request.URL.Path, status, latency, client)
		}
	}
}
