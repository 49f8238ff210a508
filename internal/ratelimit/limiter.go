package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gitlab-metrics/pkg/log"
)

const (
	keyPrefix = "rate_limit"

	defaultWindow = time.Minute
	defaultLimit  = 100
)

type limiter struct {
	l      log.Logger
	store  CounterStore
	window time.Duration
	limits map[string]int
	now    func() time.Time
}

// New creates a fixed-window admission limiter over store.
func New(l log.Logger, store CounterStore, cfg Config) *limiter {
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}
	limits := make(map[string]int, len(cfg.Limits)+1)
	for k, v := range cfg.Limits {
		limits[k] = v
	}
	if _, ok := limits[string(ClassDefault)]; !ok {
		limits[string(ClassDefault)] = defaultLimit
	}
	return &limiter{
		l:      l,
		store:  store,
		window: window,
		limits: limits,
		now:    time.Now,
	}
}

// Admit counts one request for clientKey against the class threshold. When
// the store fails the request is admitted.
func (lm *limiter) Admit(ctx context.Context, clientKey string, class Class) (Decision, error) {
	limit := lm.limitFor(class)
	now := lm.now()

	count, ttl, err := lm.store.Incr(ctx, counterKey(clientKey, class), lm.window)
	if err != nil {
		lm.l.Warnf(ctx, "ratelimit.Admit: counter store unavailable, admitting %s: %v", clientKey, err)
		return Decision{
			Allow:         true,
			Limit:         limit,
			Remaining:     limit,
			ResetAtMillis: now.Add(lm.window).UnixMilli(),
		}, nil
	}

	if ttl <= 0 {
		ttl = lm.window
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allow:         count <= int64(limit),
		Limit:         limit,
		Remaining:     remaining,
		ResetAtMillis: now.Add(ttl).UnixMilli(),
	}, nil
}

func (lm *limiter) limitFor(class Class) int {
	if n, ok := lm.limits[string(class)]; ok {
		return n
	}
	return lm.limits[string(ClassDefault)]
}

func counterKey(clientKey string, class Class) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, clientKey, class)
}
