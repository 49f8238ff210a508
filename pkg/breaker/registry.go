package breaker

import (
	"sort"
	"sync"
	"time"
)

type Config struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// Registry lazily creates one breaker per service name. Lookups do not
// contend on a shared lock.
type Registry struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	breakers  sync.Map // name -> *Breaker
}

func NewRegistry(cfg Config) *Registry {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Registry{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	if b, ok := r.breakers.Load(name); ok {
		return b.(*Breaker)
	}
	b, _ := r.breakers.LoadOrStore(name, newBreaker(name, r.threshold, r.cooldown, r.clock))
	return b.(*Breaker)
}

// Do runs fn through the breaker named name.
func (r *Registry) Do(name string, fn func() error) error {
	return r.Get(name).Do(fn)
}

// Execute runs fn through the breaker named name and returns its result.
func Execute[T any](r *Registry, name string, fn func() (T, error)) (T, error) {
	var out T
	err := r.Get(name).Do(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Snapshot returns the stats of every known breaker sorted by name.
func (r *Registry) Snapshot() []Stats {
	var stats []Stats
	r.breakers.Range(func(_, v any) bool {
		stats = append(stats, v.(*Breaker).Stats())
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (r *Registry) clock() time.Time {
	return r.now()
}
