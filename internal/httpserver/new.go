package httpserver

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/internal/middleware"
	webhookHTTP "gitlab-metrics/internal/webhook/delivery/http"
	"gitlab-metrics/pkg/log"
)

// ReadinessProbe reports whether one dependency can serve traffic.
type ReadinessProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ShutdownHook runs after the listener has stopped accepting requests.
type ShutdownHook func(ctx context.Context) error

// HTTPServer holds all dependencies for the HTTP server.
type HTTPServer struct {
	// Server
	gin         *gin.Engine
	l           log.Logger
	port        int
	mode        string
	environment string

	// Webhook ingestion
	webhookHandler webhookHTTP.Handler
	middleware     middleware.Middleware

	probes        []ReadinessProbe
	shutdownHooks []ShutdownHook
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger      log.Logger
	Port        int
	Mode        string
	Environment string

	WebhookHandler webhookHTTP.Handler
	Middleware     middleware.Middleware

	ReadinessProbes []ReadinessProbe
	ShutdownHooks   []ShutdownHook
}

// New creates a new HTTPServer instance with its routes mapped.
func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	gin.SetMode(cfg.Mode)

	srv := &HTTPServer{
		l:              logger,
		gin:            gin.New(),
		port:           cfg.Port,
		mode:           cfg.Mode,
		environment:    cfg.Environment,
		webhookHandler: cfg.WebhookHandler,
		middleware:     cfg.Middleware,
		probes:         cfg.ReadinessProbes,
		shutdownHooks:  cfg.ShutdownHooks,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	if err := srv.mapHandlers(); err != nil {
		return nil, err
	}

	return srv, nil
}

func (srv HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.mode == "" {
		return errors.New("mode is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	return nil
}

// Handler exposes the engine, mainly for tests.
func (srv *HTTPServer) Handler() *gin.Engine {
	return srv.gin
}
