package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const shardCount = 32

type counter struct {
	count     int64
	expiresAt time.Time
}

// store keeps counters in-process. Used when no Redis is configured; limits
// are then enforced per API instance.
type store struct {
	counters *expirable.LRU[string, counter]
	shards   [shardCount]sync.Mutex
	now      func() time.Time
}

// New creates a store bounded to size keys, each dropped after ttl
// (use the longest configured window).
func New(size int, ttl time.Duration) *store {
	if size <= 0 {
		size = 10000
	}
	return &store{
		counters: expirable.NewLRU[string, counter](size, nil, ttl),
		now:      time.Now,
	}
}

func (s *store) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	mu := &s.shards[shardFor(key)]
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	c, ok := s.counters.Get(key)
	if !ok || !now.Before(c.expiresAt) {
		c = counter{expiresAt: now.Add(window)}
	}
	c.count++
	s.counters.Add(key, c)

	return c.count, c.expiresAt.Sub(now), nil
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}
