package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/pkg/rabbitmq"
)

const (
	HeaderRequestID   = "x-request-id"
	HeaderEventKind   = "x-event-kind"
	HeaderReplayCount = "x-replay-count"
)

// Broker publishes with confirms. *rabbitmq.Connection implements it.
type Broker interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

type publisher struct {
	broker Broker
	now    func() time.Time
}

func NewPublisher(broker Broker) *publisher {
	return &publisher{broker: broker, now: time.Now}
}

// Publish sends msg as a persistent JSON message to the domain's routing key.
func (p *publisher) Publish(ctx context.Context, domain Domain, msg model.QueueMessage) error {
	b, err := BindingFor(domain)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", domain, err)
	}

	err = p.broker.Publish(ctx, Exchange, b.RoutingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.RequestID,
		Timestamp:    p.now(),
		Type:         string(msg.EventKind),
		Headers: amqp.Table{
			HeaderRequestID: msg.RequestID,
			HeaderEventKind: string(msg.EventKind),
		},
		Body: body,
	})
	if errors.Is(err, rabbitmq.ErrNacked) {
		return fmt.Errorf("%w: %s: %w", ErrPublishNacked, domain, err)
	}
	return err
}
