package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab-metrics/config"
	configRabbit "gitlab-metrics/config/rabbitmq"
	configRedis "gitlab-metrics/config/redis"
	_ "gitlab-metrics/docs" // Swagger docs
	"gitlab-metrics/internal/httpserver"
	"gitlab-metrics/internal/middleware"
	"gitlab-metrics/internal/processor"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/internal/ratelimit"
	rateMemory "gitlab-metrics/internal/ratelimit/repository/memory"
	rateRedis "gitlab-metrics/internal/ratelimit/repository/redis"
	"gitlab-metrics/internal/webhook"
	webhookHTTP "gitlab-metrics/internal/webhook/delivery/http"
	"gitlab-metrics/internal/webhook/parser"
	webhookUC "gitlab-metrics/internal/webhook/usecase"
	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/log"
)

// @title       GitLab Metrics Webhook API
// @description Ingests GitLab webhooks and fans them out to asynchronous analysis queues.
// @version     1
// @host        localhost:8080
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting webhook API...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)

	var probes []httpserver.ReadinessProbe

	// 3. Counter store: Redis when configured, in-process otherwise
	var store ratelimit.CounterStore
	redisClient, err := configRedis.Connect(ctx, cfg.Redis)
	switch {
	case err == nil:
		defer configRedis.Disconnect(redisClient)
		store = rateRedis.New(redisClient)
		probes = append(probes, httpserver.ReadinessProbe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		logger.Infof(ctx, "Rate limit counters in Redis at %s", cfg.Redis.Addr)
	case errors.Is(err, configRedis.ErrNotConfigured):
		store = rateMemory.New(cfg.RateLimit.LocalStoreSize, cfg.RateLimit.Window)
		logger.Warn(ctx, "Redis not configured, rate limit counters are per instance")
	default:
		logger.Error(ctx, "Failed to connect to Redis: ", err)
		return
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(logger, store, ratelimit.Config{
			Window: cfg.RateLimit.Window,
			Limits: cfg.RateLimit.Limits,
		})
	}

	// 4. Broker
	conn, err := configRabbit.Connect(ctx, logger, cfg.RabbitMQ, cfg.Queue, "gitlab-metrics-api")
	if err != nil {
		logger.Error(ctx, "Failed to connect to RabbitMQ: ", err)
		return
	}
	defer configRabbit.Disconnect(conn)
	probes = append(probes, httpserver.ReadinessProbe{
		Name: "rabbitmq",
		Check: func(context.Context) error {
			if !conn.IsHealthy() {
				return errors.New("connection closed")
			}
			return nil
		},
	})

	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Cooldown:         cfg.CircuitBreaker.Cooldown,
	})

	// 5. Processor
	proc := processor.New(logger, queue.NewPublisher(queue.GuardBroker(conn, breakers)), processor.Config{
		Workers:        cfg.Processor.Workers,
		QueueSize:      cfg.Processor.QueueSize,
		PublishTimeout: cfg.Processor.PublishTimeout,
	})

	// 6. Webhook domain
	security := webhook.NewSecurityValidator(webhook.SecurityConfig{
		Secret:         cfg.Webhook.Secret,
		AllowedIPs:     cfg.Webhook.AllowedIPs,
		TrustedProxies: cfg.Webhook.TrustedProxies,
	})
	if cfg.Webhook.Secret == "" {
		logger.Warn(ctx, "webhook.secret is empty: every webhook will be rejected")
	}

	var webhookHandler webhookHTTP.Handler
	if cfg.Webhook.Enabled {
		uc := webhookUC.New(logger, parser.Default(), proc, webhookUC.Config{
			DedupSize: cfg.Webhook.DedupSize,
			DedupTTL:  cfg.Webhook.DedupTTL,
		})
		webhookHandler = webhookHTTP.New(logger, uc, security, limiter, breakers)
	}

	// 7. HTTP Server
	httpServer, err := httpserver.New(logger, httpserver.Config{
		Logger:          logger,
		Port:            cfg.HTTPServer.Port,
		Mode:            cfg.HTTPServer.Mode,
		Environment:     cfg.Environment.Name,
		WebhookHandler:  webhookHandler,
		Middleware:      middleware.New(logger, security),
		ReadinessProbes: probes,
		ShutdownHooks:   []httpserver.ShutdownHook{proc.Stop},
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize HTTP server: ", err)
		return
	}

	// 8. Run
	if err := httpServer.Run(ctx); err != nil {
		logger.Error(ctx, "Failed to run server: ", err)
		return
	}

	logger.Info(ctx, "Server stopped gracefully")
}
