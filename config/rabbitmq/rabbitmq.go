// Package rabbitmq connects to the broker and declares the queue topology.
package rabbitmq

import (
	"context"
	"fmt"

	"gitlab-metrics/config"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/log"
	pkgRabbit "gitlab-metrics/pkg/rabbitmq"
)

// Connect dials the broker, retrying with backoff, then declares the
// exchanges and queues. Declaration is idempotent so both binaries call it.
func Connect(ctx context.Context, l log.Logger, cfg config.RabbitMQConfig, queueCfg config.QueueConfig, connectionName string) (*pkgRabbit.Connection, error) {
	conn := pkgRabbit.New(l, pkgRabbit.Config{
		URL:            cfg.ConnectionURL(),
		ConnectionName: connectionName,
	})
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open topology channel: %w", err)
	}
	defer ch.Close()

	if err := queue.DeclareTopology(ch, queue.TopologyConfig{
		MaxLength:   queueCfg.MaxLength,
		ReplayDelay: queueCfg.DeadLetter.ReplayDelay,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	l.Infof(ctx, "config.rabbitmq.Connect: topology declared on %s", queue.Exchange)
	return conn, nil
}

// Disconnect closes the connection. A nil connection is a no-op.
func Disconnect(conn *pkgRabbit.Connection) {
	if conn != nil {
		conn.Close()
	}
}
