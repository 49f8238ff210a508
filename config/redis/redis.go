// Package redis opens the shared Redis connection used by the rate limiter.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab-metrics/config"
)

const pingTimeout = 5 * time.Second

// ErrNotConfigured is returned when no address is set. Callers fall back to
// the in-process counter store.
var ErrNotConfigured = errors.New("redis address is not configured")

// Connect creates a client and pings it once.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrNotConfigured
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// Disconnect closes the client. A nil client is a no-op.
func Disconnect(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
