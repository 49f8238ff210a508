package queue

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/rabbitmq"
)

// BrokerBreakerName names the circuit guarding broker publishes.
const BrokerBreakerName = "rabbitmq"

type guardedBroker struct {
	next     Broker
	breakers *breaker.Registry
}

// GuardBroker runs every publish through the broker circuit breaker. A nack
// is flow control from a reachable broker and does not count as a failure.
func GuardBroker(next Broker, breakers *breaker.Registry) Broker {
	return &guardedBroker{next: next, breakers: breakers}
}

func (g *guardedBroker) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	var nacked error
	err := g.breakers.Do(BrokerBreakerName, func() error {
		err := g.next.Publish(ctx, exchange, routingKey, msg)
		if errors.Is(err, rabbitmq.ErrNacked) {
			nacked = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return nacked
}
