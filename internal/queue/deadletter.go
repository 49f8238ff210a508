package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"gitlab-metrics/pkg/log"
)

const (
	DefaultMaxReplays  = 3
	DefaultReplayDelay = 30 * time.Second
)

type DeadLetterConfig struct {
	MaxReplays int
	// Alerter, when set, is told about every parked message.
	Alerter Alerter
}

// Alerter notifies operators.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

type deadLetterAction int

const (
	actionReplay deadLetterAction = iota
	actionPark
)

type deadLetterDecision struct {
	action  deadLetterAction
	binding Binding
	// routingKey is the key the message was rejected under.
	routingKey string
	replays    int
}

// DeadLetterConsumer drains dead.letter.queue. A message goes to its
// domain's retry queue, and from there back to its original routing key once
// the queue TTL expires, until it has been replayed MaxReplays times. Then it
// is parked and reported at error level. The handler never waits out the
// delay itself.
type DeadLetterConsumer struct {
	l      log.Logger
	opener ChannelOpener
	broker Broker
	cfg    DeadLetterConfig
}

func NewDeadLetterConsumer(l log.Logger, opener ChannelOpener, broker Broker, cfg DeadLetterConfig) *DeadLetterConsumer {
	if cfg.MaxReplays < 0 {
		cfg.MaxReplays = DefaultMaxReplays
	}
	return &DeadLetterConsumer{
		l:      l,
		opener: opener,
		broker: broker,
		cfg:    cfg,
	}
}

func (c *DeadLetterConsumer) Run(ctx context.Context) error {
	backoff := restartBackoff
	for {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.l.Warnf(ctx, "queue.DeadLetterConsumer: stopped (%v), restarting in %s", err, backoff)
		if err := sleepContext(ctx, backoff); err != nil {
			return nil
		}
		backoff *= 2
		if backoff > maxRestartBackoff {
			backoff = maxRestartBackoff
		}
	}
}

func (c *DeadLetterConsumer) consumeOnce(ctx context.Context) error {
	ch, err := c.opener.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos on %s: %w", DeadLetterQueue, err)
	}
	deliveries, err := ch.Consume(DeadLetterQueue, "dlq-"+uuid.NewString(), false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", DeadLetterQueue, err)
	}

	stop := context.AfterFunc(ctx, func() { ch.Close() })
	defer stop()

	for d := range deliveries {
		c.handle(ctx, d)
	}
	return fmt.Errorf("delivery channel closed for %s", DeadLetterQueue)
}

func (c *DeadLetterConsumer) handle(ctx context.Context, d amqp.Delivery) {
	if id, ok := d.Headers[HeaderRequestID].(string); ok {
		ctx = log.WithRequestID(ctx, id)
	}

	dec := decideDeadLetter(d, c.cfg.MaxReplays)

	switch dec.action {
	case actionReplay:
		if err := c.broker.Publish(ctx, DeadLetterExchange, dec.binding.RetryKey(), republish(d, dec.replays+1)); err != nil {
			c.l.Errorf(ctx, "queue.DeadLetterConsumer: replay to %s failed: %v", dec.binding.RetryQueue(), err)
			c.requeue(ctx, d)
			return
		}
		c.l.Warnf(ctx, "queue.DeadLetterConsumer: scheduled replay to %s via %s (attempt %d/%d)", dec.routingKey, dec.binding.RetryQueue(), dec.replays+1, c.cfg.MaxReplays)

	case actionPark:
		if err := c.broker.Publish(ctx, DeadLetterExchange, ParkingKey, republish(d, dec.replays)); err != nil {
			c.l.Errorf(ctx, "queue.DeadLetterConsumer: park failed: %v", err)
			c.requeue(ctx, d)
			return
		}
		c.l.Errorf(ctx, "queue.DeadLetterConsumer: message from %q parked in %s after %d replays", dec.routingKey, ParkingQueue, dec.replays)
		c.alert(ctx, d, dec)
	}

	if err := d.Ack(false); err != nil {
		c.l.Errorf(ctx, "queue.DeadLetterConsumer: ack failed: %v", err)
	}
}

func (c *DeadLetterConsumer) alert(ctx context.Context, d amqp.Delivery, dec deadLetterDecision) {
	if c.cfg.Alerter == nil {
		return
	}
	requestID, _ := d.Headers[HeaderRequestID].(string)
	text := fmt.Sprintf("message %s from %q parked in %s after %d replays", requestID, dec.routingKey, ParkingQueue, dec.replays)
	if err := c.cfg.Alerter.Alert(ctx, text); err != nil {
		c.l.Warnf(ctx, "queue.DeadLetterConsumer: alert failed: %v", err)
	}
}

func (c *DeadLetterConsumer) requeue(ctx context.Context, d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		c.l.Errorf(ctx, "queue.DeadLetterConsumer: nack failed: %v", err)
	}
}

// decideDeadLetter picks replay or park for a dead-lettered delivery.
func decideDeadLetter(d amqp.Delivery, maxReplays int) deadLetterDecision {
	replays := headerInt(d.Headers[HeaderReplayCount])
	key := originalRoutingKey(d)

	b, known := bindingForKey(key)
	if !known || replays >= maxReplays {
		return deadLetterDecision{action: actionPark, routingKey: key, replays: replays}
	}
	return deadLetterDecision{action: actionReplay, binding: b, routingKey: key, replays: replays}
}

// originalRoutingKey reads the routing key of the x-death entry left by a
// consumer rejection. A replayed message also carries an "expired" entry from
// its retry queue, which is skipped.
func originalRoutingKey(d amqp.Delivery) string {
	deaths, ok := d.Headers["x-death"].([]interface{})
	if !ok || len(deaths) == 0 {
		return ""
	}
	death, ok := deaths[0].(amqp.Table)
	for _, entry := range deaths {
		if t, isTable := entry.(amqp.Table); isTable && t["reason"] == "rejected" {
			death, ok = t, true
			break
		}
	}
	if !ok {
		return ""
	}
	keys, ok := death["routing-keys"].([]interface{})
	if !ok || len(keys) == 0 {
		return ""
	}
	key, _ := keys[0].(string)
	return key
}

func republish(d amqp.Delivery, replays int) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		if k == "x-death" || k == "x-first-death-exchange" || k == "x-first-death-queue" || k == "x-first-death-reason" {
			continue
		}
		headers[k] = v
	}
	headers[HeaderReplayCount] = int32(replays)

	return amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Type:         d.Type,
		Headers:      headers,
		Body:         d.Body,
	}
}

func headerInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
