package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Domain names one analysis pipeline.
type Domain string

const (
	CommitAnalysis       Domain = "commit-analysis"
	MergeRequestAnalysis Domain = "merge-request-analysis"
	QualityAnalysis      Domain = "quality-analysis"
	BugTrackingAnalysis  Domain = "bug-tracking-analysis"
	EfficiencyAnalysis   Domain = "efficiency-analysis"
)

const (
	Exchange           = "events.exchange"
	DeadLetterExchange = Exchange + ".dlx"
	DeadLetterQueue    = "dead.letter.queue"
	DeadLetterKey      = "dead.letter"
	ParkingQueue       = "dead.letter.parking"
	ParkingKey         = "dead.letter.parking"

	retryQueueSuffix = ".retry"
	retryKeyPrefix   = "retry."

	DefaultConcurrency = 5
	MaxConcurrency     = 10
)

// Binding is the broker-side identity of a domain.
type Binding struct {
	Domain     Domain
	Queue      string
	RoutingKey string
}

// RetryQueue holds replayed messages of the domain until the replay delay
// expires, then dead-letters them back onto RoutingKey.
func (b Binding) RetryQueue() string { return b.Queue + retryQueueSuffix }

// RetryKey routes a message on the dead-letter exchange into RetryQueue.
func (b Binding) RetryKey() string { return retryKeyPrefix + b.RoutingKey }

var bindings = []Binding{
	{Domain: CommitAnalysis, Queue: "commit.analysis.queue", RoutingKey: "event.push"},
	{Domain: MergeRequestAnalysis, Queue: "merge.request.analysis.queue", RoutingKey: "event.merge_request"},
	{Domain: QualityAnalysis, Queue: "quality.analysis.queue", RoutingKey: "event.quality"},
	{Domain: BugTrackingAnalysis, Queue: "bug.tracking.analysis.queue", RoutingKey: "event.issue"},
	{Domain: EfficiencyAnalysis, Queue: "efficiency.analysis.queue", RoutingKey: "event.efficiency"},
}

// Bindings returns every domain binding in declaration order.
func Bindings() []Binding {
	out := make([]Binding, len(bindings))
	copy(out, bindings)
	return out
}

// BindingFor returns the binding of d.
func BindingFor(d Domain) (Binding, error) {
	for _, b := range bindings {
		if b.Domain == d {
			return b, nil
		}
	}
	return Binding{}, fmt.Errorf("%w: %s", ErrUnknownDomain, d)
}

// bindingForKey resolves a routing key back to its domain binding.
func bindingForKey(key string) (Binding, bool) {
	for _, b := range bindings {
		if b.RoutingKey == key {
			return b, true
		}
	}
	return Binding{}, false
}

// Declarer is the subset of *amqp.Channel used to declare the fabric.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

type TopologyConfig struct {
	// MaxLength caps each domain queue; 0 leaves them unbounded.
	MaxLength int
	// ReplayDelay is the TTL of the retry queues. Changing it on a live
	// broker requires deleting the retry queues first.
	ReplayDelay time.Duration
}

// DeclareTopology declares the main exchange, the dead-letter exchange, the
// domain queues with their retry queues and the dead-letter and parking
// queues. It is idempotent.
func DeclareTopology(ch Declarer, cfg TopologyConfig) error {
	if err := ch.ExchangeDeclare(Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", DeadLetterExchange, err)
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, queueArgs(cfg)); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.Queue, err)
		}

		if _, err := ch.QueueDeclare(b.RetryQueue(), true, false, false, false, retryArgs(b, cfg)); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.RetryQueue(), err)
		}
		if err := ch.QueueBind(b.RetryQueue(), b.RetryKey(), DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.RetryQueue(), err)
		}
	}

	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(DeadLetterQueue, DeadLetterKey, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", DeadLetterQueue, err)
	}

	if _, err := ch.QueueDeclare(ParkingQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", ParkingQueue, err)
	}
	if err := ch.QueueBind(ParkingQueue, ParkingKey, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", ParkingQueue, err)
	}

	return nil
}

// retryArgs has no consumers: messages leave only by expiring.
func retryArgs(b Binding, cfg TopologyConfig) amqp.Table {
	delay := cfg.ReplayDelay
	if delay <= 0 {
		delay = DefaultReplayDelay
	}
	return amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    Exchange,
		"x-dead-letter-routing-key": b.RoutingKey,
	}
}

func queueArgs(cfg TopologyConfig) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterKey,
	}
	if cfg.MaxLength > 0 {
		args["x-max-length"] = int32(cfg.MaxLength)
		args["x-overflow"] = "reject-publish"
	}
	return args
}
