package webhook

import (
	"context"

	"gitlab-metrics/internal/model"
)

//go:generate mockery --name UseCase
type UseCase interface {
	// Dispatch resolves, validates and parses an inbound webhook, then hands
	// it to the processor. It never waits for downstream publishing.
	Dispatch(ctx context.Context, envelope model.WebhookEnvelope) (DispatchOutput, error)
	SupportedEventKinds() []model.EventKind
}

// Processor receives parsed events for asynchronous routing.
type Processor interface {
	ProcessAsync(ctx context.Context, kind model.EventKind, event model.Event, requestID string) error
}
