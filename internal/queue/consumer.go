package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/pkg/log"
)

// Handler processes one decoded message. A returned error dead-letters it.
type Handler interface {
	Handle(ctx context.Context, msg model.QueueMessage) error
}

type HandlerFunc func(ctx context.Context, msg model.QueueMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg model.QueueMessage) error { return f(ctx, msg) }

// ChannelOpener opens consumer channels. *rabbitmq.Connection implements it.
type ChannelOpener interface {
	Channel() (*amqp.Channel, error)
}

const (
	restartBackoff    = time.Second
	maxRestartBackoff = 30 * time.Second
)

// Consumer runs a bounded pool of workers over one domain queue: prefetch N
// and N goroutines, manual ack.
type Consumer struct {
	l           log.Logger
	opener      ChannelOpener
	binding     Binding
	handler     Handler
	concurrency int
}

func NewConsumer(l log.Logger, opener ChannelOpener, domain Domain, handler Handler, concurrency int) (*Consumer, error) {
	b, err := BindingFor(domain)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		l:           l,
		opener:      opener,
		binding:     b,
		handler:     handler,
		concurrency: clampConcurrency(concurrency),
	}, nil
}

// Run consumes until ctx is cancelled, reopening the channel with backoff
// whenever it is lost.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := restartBackoff
	for {
		err := c.consumeOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.l.Warnf(ctx, "queue.Consumer: %s stopped (%v), restarting in %s", c.binding.Queue, err, backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxRestartBackoff {
			backoff = maxRestartBackoff
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context) error {
	ch, err := c.opener.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos on %s: %w", c.binding.Queue, err)
	}

	tag := fmt.Sprintf("%s-%s", c.binding.Domain, uuid.NewString())
	deliveries, err := ch.Consume(c.binding.Queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.binding.Queue, err)
	}
	c.l.Infof(ctx, "queue.Consumer: consuming %s with %d workers", c.binding.Queue, c.concurrency)

	stop := context.AfterFunc(ctx, func() { ch.Close() })
	defer stop()

	var g errgroup.Group
	for i := 0; i < c.concurrency; i++ {
		g.Go(func() error {
			for d := range deliveries {
				c.handle(ctx, d)
			}
			return nil
		})
	}
	g.Wait()

	return fmt.Errorf("delivery channel closed for %s", c.binding.Queue)
}

// handle decodes d, runs the handler and settles the delivery: ack on
// success, nack without requeue otherwise so the broker dead-letters it.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var msg model.QueueMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.l.Errorf(ctx, "queue.Consumer: %s: %v: %v", c.binding.Queue, ErrMalformed, err)
		c.reject(ctx, d)
		return
	}

	ctx = log.WithEventKind(log.WithRequestID(ctx, msg.RequestID), string(msg.EventKind))

	if err := c.safeHandle(ctx, msg); err != nil {
		c.l.Errorf(ctx, "queue.Consumer: %s: handler failed: %v", c.binding.Queue, err)
		c.reject(ctx, d)
		return
	}

	if err := d.Ack(false); err != nil {
		c.l.Errorf(ctx, "queue.Consumer: %s: ack failed: %v", c.binding.Queue, err)
	}
}

func (c *Consumer) safeHandle(ctx context.Context, msg model.QueueMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, msg)
}

func (c *Consumer) reject(ctx context.Context, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		c.l.Errorf(ctx, "queue.Consumer: %s: nack failed: %v", c.binding.Queue, err)
	}
}

func clampConcurrency(n int) int {
	switch {
	case n <= 0:
		return DefaultConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	default:
		return n
	}
}

// Runner is a long running consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// RunAll runs every runner until ctx is cancelled or one of them fails.
func RunAll(ctx context.Context, runners ...Runner) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		r := r
		g.Go(func() error { return r.Run(gctx) })
	}
	return g.Wait()
}
