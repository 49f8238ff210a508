package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gitlab-metrics/internal/ratelimit"
	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/log"
)

// Handler is the ingress surface for source-control webhooks.
type Handler interface {
	Receive(c *gin.Context)
	Health(c *gin.Context)
	EventKinds(c *gin.Context)
	Breakers(c *gin.Context)
}

// BreakerSnapshotter exposes circuit breaker state for monitoring.
type BreakerSnapshotter interface {
	Snapshot() []breaker.Stats
}

type handler struct {
	l        log.Logger
	uc       webhook.UseCase
	security *webhook.SecurityValidator
	limiter  ratelimit.Limiter
	breakers BreakerSnapshotter
	now      func() time.Time
	newID    func() string
}

// New creates the webhook HTTP handler. A nil limiter disables admission
// control; a nil breakers source reports an empty list.
func New(l log.Logger, uc webhook.UseCase, security *webhook.SecurityValidator, limiter ratelimit.Limiter, breakers BreakerSnapshotter) *handler {
	return &handler{
		l:        l,
		uc:       uc,
		security: security,
		limiter:  limiter,
		breakers: breakers,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}
