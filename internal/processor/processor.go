package processor

import (
	"context"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/pkg/log"
)

// ProcessAsync queues the event for routing and returns immediately. It
// fails only when the pool cannot take the task.
func (p *processor) ProcessAsync(ctx context.Context, kind model.EventKind, event model.Event, requestID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.tasks <- task{kind: kind, event: event, requestID: requestID}:
		return nil
	default:
		p.l.Warnf(ctx, "processor.ProcessAsync: pool saturated, dropping %s event %s", kind, requestID)
		return ErrPoolSaturated
	}
}

// Stop refuses new work and waits for queued tasks to finish or ctx to end.
func (p *processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("processor stop: %w", ctx.Err())
	}
}

func (p *processor) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *processor) run(t task) {
	ctx := log.WithEventKind(log.WithRequestID(context.Background(), t.requestID), string(t.kind))

	defer func() {
		if r := recover(); r != nil {
			p.l.Errorf(ctx, "processor.run: panic while routing %s event: %v", t.kind, r)
		}
	}()

	route, ok := p.routes[t.kind]
	if !ok {
		p.l.Warnf(ctx, "processor.run: no route for event kind %q", t.kind)
		return
	}

	msg := model.NewQueueMessage(t.requestID, t.event, p.now())
	for _, domain := range route.targets(t.event) {
		pubCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
		err := p.publisher.Publish(pubCtx, domain, msg)
		cancel()
		if err != nil {
			p.l.Errorf(ctx, "processor.run: publish %s event %s to %s failed: %v", t.kind, t.event.PrimaryID(), domain, err)
			continue
		}
		p.l.Debugf(ctx, "processor.run: published %s event %s to %s", t.kind, t.event.PrimaryID(), domain)
	}
}
