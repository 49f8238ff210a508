package ratelimit

import (
	"context"
	"time"
)

// CounterStore is a fixed-window counter. Incr atomically increments key,
// sets its expiry to window when the post-increment value is 1, and returns
// the new count with the remaining time to live.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

//go:generate mockery --name Limiter
type Limiter interface {
	Admit(ctx context.Context, clientKey string, class Class) (Decision, error)
}
