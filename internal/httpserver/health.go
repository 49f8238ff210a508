package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/pkg/response"
)

// Health response constants (single source for version and service identity).
const (
	HealthMessage = "GitLab webhook ingestion service"
	HealthVersion = "1.0.0"
	ServiceName   = "gitlab-metrics"
)

const readinessTimeout = 2 * time.Second

// healthCheck handles health check requests
// @Summary Health Check
// @Description Check if the API is healthy
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "API is healthy"
// @Router /health [get]
func (srv HTTPServer) healthCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "healthy",
		"message": HealthMessage,
		"version": HealthVersion,
		"service": ServiceName,
	})
}

// readyCheck reports ready only when every dependency probe passes.
// @Summary Readiness Check
// @Description Check the counter store and the message broker
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "API is ready"
// @Failure 503 {object} response.Resp "A dependency is unavailable"
// @Router /ready [get]
func (srv HTTPServer) readyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := make(gin.H, len(srv.probes))
	ready := true
	for _, p := range srv.probes {
		if err := p.Check(ctx); err != nil {
			srv.l.Warnf(ctx, "httpserver.readyCheck: %s: %v", p.Name, err)
			checks[p.Name] = "unhealthy"
			ready = false
			continue
		}
		checks[p.Name] = "healthy"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, response.Resp{
			ErrorCode: http.StatusServiceUnavailable,
			Message:   "not ready",
			Data:      gin.H{"status": "not_ready", "checks": checks},
		})
		return
	}

	response.OK(c, gin.H{
		"status":  "ready",
		"checks":  checks,
		"version": HealthVersion,
		"service": ServiceName,
	})
}

// liveCheck handles liveness check requests
// @Summary Liveness Check
// @Description Check if the API is alive
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "API is alive"
// @Router /live [get]
func (srv HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "alive",
		"message": HealthMessage,
		"version": HealthVersion,
		"service": ServiceName,
	})
}
