package processor

import (
	"context"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
)

// Publisher sends one message to one analysis domain.
type Publisher interface {
	Publish(ctx context.Context, domain queue.Domain, msg model.QueueMessage) error
}
