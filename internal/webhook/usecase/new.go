package usecase

import (
	"time"

	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/internal/webhook/parser"
	"gitlab-metrics/pkg/log"
)

type Config struct {
	DedupSize int
	DedupTTL  time.Duration
}

type usecase struct {
	l         log.Logger
	registry  *parser.Registry
	processor webhook.Processor
	dedup     *deliveryGuard
}

// New creates the dispatcher. A zero DedupTTL disables the duplicate-delivery
// guard.
func New(l log.Logger, registry *parser.Registry, processor webhook.Processor, cfg Config) *usecase {
	return &usecase{
		l:         l,
		registry:  registry,
		processor: processor,
		dedup:     newDeliveryGuard(cfg.DedupSize, cfg.DedupTTL),
	}
}
