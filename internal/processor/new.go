package processor

import (
	"sync"
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/pkg/log"
)

const (
	defaultWorkers        = 8
	defaultQueueSize      = 1024
	defaultPublishTimeout = 5 * time.Second
)

type Config struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
	// Routes overrides the routing table; nil uses DefaultRoutes.
	Routes []Route
}

type task struct {
	kind      model.EventKind
	event     model.Event
	requestID string
}

type processor struct {
	l              log.Logger
	publisher      Publisher
	routes         map[model.EventKind]Route
	publishTimeout time.Duration
	now            func() time.Time

	tasks   chan task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// New starts the worker pool. Call Stop to drain it.
func New(l log.Logger, publisher Publisher, cfg Config) *processor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Routes == nil {
		cfg.Routes = DefaultRoutes()
	}

	routes := make(map[model.EventKind]Route, len(cfg.Routes))
	for _, r := range cfg.Routes {
		routes[r.Kind] = r
	}

	p := &processor{
		l:              l,
		publisher:      publisher,
		routes:         routes,
		publishTimeout: cfg.PublishTimeout,
		now:            time.Now,
		tasks:          make(chan task, cfg.QueueSize),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}
