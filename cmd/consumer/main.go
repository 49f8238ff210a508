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
	"gitlab-metrics/internal/analysis"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/log"
	"gitlab-metrics/pkg/sonarqube"
	"gitlab-metrics/pkg/telegram"
)

// main is the entry point for the analysis consumer service.
// It drains the per-domain analysis queues and the dead-letter queue.
//
// Pattern:
//  1. Initialize infra (same as cmd/api/main.go)
//  2. Create UseCases
//  3. Create one consumer pool per domain, wire handlers
//  4. Run & graceful shutdown
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting consumer service...")

	// Infrastructure
	conn, err := configRabbit.Connect(ctx, logger, cfg.RabbitMQ, cfg.Queue, "gitlab-metrics-consumer")
	if err != nil {
		logger.Error(ctx, "Failed to connect to RabbitMQ: ", err)
		return
	}
	defer configRabbit.Disconnect(conn)

	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Cooldown:         cfg.CircuitBreaker.Cooldown,
	})

	// Quality gate lookups (optional)
	var quality analysis.QualityGateChecker
	if cfg.SonarQube.URL != "" {
		quality = sonarqube.New(sonarqube.Config{
			BaseURL:        cfg.SonarQube.URL,
			Token:          cfg.SonarQube.Token,
			Timeout:        cfg.SonarQube.Timeout,
			RequestsPerMin: cfg.SonarQube.RequestsPerMin,
		}, breakers)
		logger.Infof(ctx, "SonarQube quality gates from %s", cfg.SonarQube.URL)
	} else {
		logger.Warn(ctx, "SonarQube not configured (optional): quality analysis records events only")
	}

	// UseCases
	analysisUC := analysis.New(logger, analysis.NewLogSink(logger), quality)

	// Consumer pools
	var runners []queue.Runner
	for domain, handler := range analysisUC.Handlers() {
		concurrency := cfg.Queue.Concurrency[string(domain)]
		consumer, err := queue.NewConsumer(logger, conn, domain, handler, concurrency)
		if err != nil {
			logger.Errorf(ctx, "Failed to create %s consumer: %v", domain, err)
			return
		}
		runners = append(runners, consumer)
	}

	// Parked message alerts (optional)
	var alerter queue.Alerter
	if cfg.Alert.TelegramBotToken != "" && cfg.Alert.TelegramChatID != 0 {
		alerter = telegram.NewAlerter(telegram.NewBot(cfg.Alert.TelegramBotToken), cfg.Alert.TelegramChatID, "gitlab-metrics")
		logger.Info(ctx, "Telegram alerts enabled for parked messages")
	}

	deadLetterConsumers := cfg.Queue.DeadLetter.Consumers
	if deadLetterConsumers <= 0 {
		deadLetterConsumers = 1
	}
	for i := 0; i < deadLetterConsumers; i++ {
		runners = append(runners, queue.NewDeadLetterConsumer(logger, conn, conn, queue.DeadLetterConfig{
			MaxReplays: cfg.Queue.DeadLetter.MaxReplays,
			Alerter:    alerter,
		}))
	}

	logger.Infof(ctx, "Running %d consumers", len(runners))

	if err := queue.RunAll(ctx, runners...); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Consumer stopped with error: ", err)
		return
	}

	logger.Info(ctx, "Consumer service stopped gracefully")
}
