// Package rabbitmq manages the broker connection with automatic recovery.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gitlab-metrics/pkg/log"
)

var (
	ErrNotConnected = errors.New("rabbitmq connection is not available")
	ErrNacked       = errors.New("rabbitmq publish was nacked")
)

const (
	initialBackoff     = time.Second
	maxBackoff         = 30 * time.Second
	maxInitialAttempts = 10
	heartbeat          = 10 * time.Second
)

type Config struct {
	URL            string
	ConnectionName string
}

// Connection owns one AMQP connection plus a confirm-mode channel used for
// publishing. Consumers open their own channels through Channel.
type Connection struct {
	l   log.Logger
	cfg Config

	mu        sync.RWMutex
	conn      *amqp.Connection
	publishMu sync.Mutex
	pubCh     *amqp.Channel

	reconnectMu  sync.Mutex
	reconnecting bool
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func New(l log.Logger, cfg Config) *Connection {
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = "gitlab-metrics"
	}
	return &Connection{
		l:        l,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Connect dials the broker, retrying with exponential backoff, then starts
// watching the connection for failures.
func (c *Connection) Connect(ctx context.Context) error {
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		err := c.dial()
		if err == nil {
			c.l.Infof(ctx, "rabbitmq.Connect: connected after %d attempt(s)", attempt)
			break
		}
		if attempt >= maxInitialAttempts {
			return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempt, err)
		}

		c.l.Warnf(ctx, "rabbitmq.Connect: attempt %d failed, retrying in %s: %v", attempt, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}

	go c.monitor(ctx)
	return nil
}

func (c *Connection) dial() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}

	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": c.cfg.ConnectionName,
		},
	})
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	c.conn = conn

	c.publishMu.Lock()
	c.pubCh = nil
	c.publishMu.Unlock()

	return nil
}

func (c *Connection) monitor(ctx context.Context) {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		case err, ok := <-closed:
			if !ok || err == nil {
				// Graceful close
				return
			}
			c.l.Errorf(ctx, "rabbitmq.monitor: connection closed (%s), reconnecting", err.Reason)
			c.reconnect(ctx)
		}
	}
}

func (c *Connection) reconnect(ctx context.Context) {
	c.reconnectMu.Lock()
	if c.reconnecting {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnecting = true
	c.reconnectMu.Unlock()

	defer func() {
		c.reconnectMu.Lock()
		c.reconnecting = false
		c.reconnectMu.Unlock()
	}()

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := c.dial(); err != nil {
			c.l.Warnf(ctx, "rabbitmq.reconnect: attempt %d failed: %v", attempt, err)
			select {
			case <-c.stopChan:
				return
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}

		c.l.Infof(ctx, "rabbitmq.reconnect: reconnected after %d attempt(s)", attempt)
		return
	}
}

// Channel opens a new channel on the current connection.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNotConnected
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// Publish sends msg and waits for the broker confirm. A nack is returned as
// ErrNacked.
func (c *Connection) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	if c.pubCh == nil || c.pubCh.IsClosed() {
		ch, err := c.Channel()
		if err != nil {
			return err
		}
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			return fmt.Errorf("enable publisher confirms: %w", err)
		}
		c.pubCh = ch
	}

	dc, err := c.pubCh.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm %s/%s: %w", exchange, routingKey, err)
	}
	if !acked {
		return fmt.Errorf("%w: %s/%s", ErrNacked, exchange, routingKey)
	}
	return nil
}

// IsHealthy reports whether the connection is open.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close stops reconnection and closes the connection.
func (c *Connection) Close() {
	c.stopOnce.Do(func() { close(c.stopChan) })

	c.publishMu.Lock()
	if c.pubCh != nil {
		c.pubCh.Close()
		c.pubCh = nil
	}
	c.publishMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
