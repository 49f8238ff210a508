package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Ingestion
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
	Processor ProcessorConfig

	// Infrastructure
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Queue    QueueConfig

	// External services
	CircuitBreaker CircuitBreakerConfig
	SonarQube      SonarQubeConfig

	// Operations
	Alert AlertConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

type WebhookConfig struct {
	Enabled        bool
	Secret         string
	AllowedIPs     []string
	TrustedProxies []string
	DedupSize      int
	DedupTTL       time.Duration
}

// RateLimitConfig is the static threshold table of the admission limiter,
// keyed by endpoint class.
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	Limits  map[string]int
	// LocalStoreSize bounds the in-process counter store used when Redis is not configured.
	LocalStoreSize int
}

type ProcessorConfig struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type RabbitMQConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
}

// ConnectionURL returns an amqp:// URL, preferring an explicit URL.
func (c RabbitMQConfig) ConnectionURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, strings.TrimPrefix(c.VHost, "/"))
}

type QueueConfig struct {
	// MaxLength caps every domain queue; 0 means unbounded. When set, the broker
	// rejects publishes on overflow.
	MaxLength   int
	Concurrency map[string]int
	DeadLetter  DeadLetterConfig
}

type DeadLetterConfig struct {
	MaxReplays  int
	ReplayDelay time.Duration
	Consumers   int
}

type CircuitBreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

type SonarQubeConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	RequestsPerMin int
}

// AlertConfig enables Telegram alerts for parked dead letters.
type AlertConfig struct {
	TelegramBotToken string
	TelegramChatID   int64
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, ., /etc/app/
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/app/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = viper.GetString("environment.name")
	cfg.HTTPServer.Port = viper.GetInt("http_server.port")
	cfg.HTTPServer.Mode = viper.GetString("http_server.mode")
	cfg.Logger.Level = viper.GetString("logger.level")
	cfg.Logger.Mode = viper.GetString("logger.mode")
	cfg.Logger.Encoding = viper.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = viper.GetBool("logger.color_enabled")

	// Webhooks
	cfg.Webhook.Enabled = viper.GetBool("webhook.enabled")
	cfg.Webhook.Secret = viper.GetString("webhook.secret")
	if webhookSecret := viper.GetString("webhook_secret"); webhookSecret != "" {
		cfg.Webhook.Secret = webhookSecret
	}
	cfg.Webhook.DedupSize = viper.GetInt("webhook.dedup_size")
	cfg.Webhook.DedupTTL = viper.GetDuration("webhook.dedup_ttl")
	cfg.Webhook.AllowedIPs = splitList(viper.GetString("webhook.allowed_ips"))
	cfg.Webhook.TrustedProxies = splitList(viper.GetString("webhook.trusted_proxies"))

	// Rate limiting
	cfg.RateLimit.Enabled = viper.GetBool("ratelimit.enabled")
	cfg.RateLimit.Window = viper.GetDuration("ratelimit.window")
	cfg.RateLimit.LocalStoreSize = viper.GetInt("ratelimit.local_store_size")
	cfg.RateLimit.Limits = intMap(viper.GetStringMap("ratelimit.limits"))

	// Processor
	cfg.Processor.Workers = viper.GetInt("processor.workers")
	cfg.Processor.QueueSize = viper.GetInt("processor.queue_size")
	cfg.Processor.PublishTimeout = viper.GetDuration("processor.publish_timeout")

	// Redis
	cfg.Redis.Addr = viper.GetString("redis.addr")
	if redisAddr := viper.GetString("redis_url"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	cfg.Redis.Password = viper.GetString("redis.password")
	cfg.Redis.DB = viper.GetInt("redis.db")
	cfg.Redis.PoolSize = viper.GetInt("redis.pool_size")

	// RabbitMQ
	cfg.RabbitMQ.URL = viper.GetString("rabbitmq.url")
	if amqpURL := viper.GetString("rabbitmq_url"); amqpURL != "" {
		cfg.RabbitMQ.URL = amqpURL
	}
	cfg.RabbitMQ.Host = viper.GetString("rabbitmq.host")
	cfg.RabbitMQ.Port = viper.GetString("rabbitmq.port")
	cfg.RabbitMQ.User = viper.GetString("rabbitmq.user")
	cfg.RabbitMQ.Password = viper.GetString("rabbitmq.password")
	cfg.RabbitMQ.VHost = viper.GetString("rabbitmq.vhost")

	// Queue fabric
	cfg.Queue.MaxLength = viper.GetInt("queue.max_length")
	cfg.Queue.Concurrency = intMap(viper.GetStringMap("queue.concurrency"))
	cfg.Queue.DeadLetter.MaxReplays = viper.GetInt("queue.dead_letter.max_replays")
	cfg.Queue.DeadLetter.ReplayDelay = viper.GetDuration("queue.dead_letter.replay_delay")
	cfg.Queue.DeadLetter.Consumers = viper.GetInt("queue.dead_letter.consumers")

	// Circuit breaker
	cfg.CircuitBreaker.FailureThreshold = viper.GetInt("circuit_breaker.failure_threshold")
	cfg.CircuitBreaker.Cooldown = viper.GetDuration("circuit_breaker.cooldown")

	// SonarQube
	cfg.SonarQube.URL = viper.GetString("sonarqube.url")
	cfg.SonarQube.Token = viper.GetString("sonarqube.token")
	if sonarToken := viper.GetString("sonarqube_token"); sonarToken != "" {
		cfg.SonarQube.Token = sonarToken
	}
	cfg.SonarQube.Timeout = viper.GetDuration("sonarqube.timeout")
	cfg.SonarQube.RequestsPerMin = viper.GetInt("sonarqube.requests_per_min")

	// Alerts
	cfg.Alert.TelegramBotToken = viper.GetString("alert.telegram_bot_token")
	cfg.Alert.TelegramChatID = viper.GetInt64("alert.telegram_chat_id")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment.name", "development")
	viper.SetDefault("http_server.port", 8080)
	viper.SetDefault("http_server.mode", "debug")
	viper.SetDefault("logger.level", "debug")
	viper.SetDefault("logger.mode", "debug")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.color_enabled", true)

	viper.SetDefault("webhook.enabled", true)
	viper.SetDefault("webhook.dedup_size", 10000)
	viper.SetDefault("webhook.dedup_ttl", "10m")

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.window", "60s")
	viper.SetDefault("ratelimit.local_store_size", 10000)
	viper.SetDefault("ratelimit.limits", map[string]any{
		"default":   100,
		"dashboard": 20,
		"realtime":  60,
	})

	viper.SetDefault("processor.workers", 8)
	viper.SetDefault("processor.queue_size", 1024)
	viper.SetDefault("processor.publish_timeout", "5s")

	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 20)

	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", "5672")
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.vhost", "/")

	viper.SetDefault("queue.max_length", 0)
	viper.SetDefault("queue.concurrency", map[string]any{
		"commit-analysis":        5,
		"merge-request-analysis": 5,
		"quality-analysis":       5,
		"bug-tracking-analysis":  5,
		"efficiency-analysis":    5,
	})
	viper.SetDefault("queue.dead_letter.max_replays", 3)
	viper.SetDefault("queue.dead_letter.replay_delay", "30s")
	viper.SetDefault("queue.dead_letter.consumers", 1)

	viper.SetDefault("circuit_breaker.failure_threshold", 5)
	viper.SetDefault("circuit_breaker.cooldown", "60s")

	viper.SetDefault("sonarqube.timeout", "10s")
	viper.SetDefault("sonarqube.requests_per_min", 120)
}

func validate(cfg *Config) error {
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive")
	}
	if _, ok := cfg.RateLimit.Limits["default"]; !ok {
		return fmt.Errorf("ratelimit.limits must define a default class")
	}
	for domain, n := range cfg.Queue.Concurrency {
		if n <= 0 {
			return fmt.Errorf("queue.concurrency.%s must be positive", domain)
		}
	}
	if cfg.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive")
	}
	return nil
}

// splitList splits a comma separated value since viper does not parse arrays
// from env seamlessly.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// intMap converts a viper map section into a map of ints.
func intMap(m map[string]interface{}) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case int:
			out[k] = n
		case int64:
			out[k] = int(n)
		case float64:
			// Handle float64 from YAML/JSON unmarshaling
			out[k] = int(n)
		case string:
			var parsed int
			if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
				out[k] = parsed
			}
		}
	}
	return out
}
