package usecase

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// deliveryGuard remembers recently forwarded platform delivery ids.
type deliveryGuard struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func newDeliveryGuard(size int, ttl time.Duration) *deliveryGuard {
	if ttl <= 0 {
		return nil
	}
	if size <= 0 {
		size = 10000
	}
	return &deliveryGuard{
		seen: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

// claim marks id as in flight. It returns false when id was already claimed.
func (g *deliveryGuard) claim(id string) bool {
	if g == nil || id == "" {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen.Contains(id) {
		return false
	}
	g.seen.Add(id, struct{}{})
	return true
}

// release forgets id so a redelivery is processed again.
func (g *deliveryGuard) release(id string) {
	if g == nil || id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen.Remove(id)
}
