package usecase

import (
	"context"
	"errors"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/webhook"
)

// Dispatch resolves the event kind, validates and parses the payload, then
// hands the event to the processor. Exactly one hand-off happens per
// successful call and none on failure.
func (uc *usecase) Dispatch(ctx context.Context, envelope model.WebhookEnvelope) (webhook.DispatchOutput, error) {
	if envelope.EventKind == "" {
		return webhook.DispatchOutput{}, fmt.Errorf("%w: missing event kind", webhook.ErrProcessing)
	}
	if len(envelope.RawPayload) == 0 {
		return webhook.DispatchOutput{}, fmt.Errorf("%w: empty payload", webhook.ErrProcessing)
	}

	kind := webhook.NormalizeEventKind(envelope.EventKind)
	p, ok := uc.registry.Lookup(kind)
	if !ok {
		uc.l.Warnf(ctx, "webhook.usecase.Dispatch: no parser for event kind %q", envelope.EventKind)
		return webhook.DispatchOutput{}, fmt.Errorf("%w: %s", webhook.ErrUnsupportedEventType, envelope.EventKind)
	}

	if !p.IsPlausible(envelope.RawPayload) {
		return webhook.DispatchOutput{}, fmt.Errorf("%w: payload does not look like a %s event", webhook.ErrInvalidPayload, kind)
	}

	event, err := p.Parse(envelope.RawPayload)
	if err != nil {
		uc.l.Errorf(ctx, "webhook.usecase.Dispatch: parse %s: %v", kind, err)
		return webhook.DispatchOutput{}, err
	}

	if !uc.dedup.claim(envelope.RequestID) {
		uc.l.Infof(ctx, "webhook.usecase.Dispatch: duplicate delivery %s ignored", envelope.RequestID)
		return webhook.DispatchOutput{}, webhook.ErrDuplicateEvent
	}

	if err := uc.processor.ProcessAsync(ctx, kind, event, envelope.RequestID); err != nil {
		uc.dedup.release(envelope.RequestID)
		uc.l.Errorf(ctx, "webhook.usecase.Dispatch: hand-off of %s %s failed: %v", kind, event.PrimaryID(), err)
		return webhook.DispatchOutput{}, errors.Join(webhook.ErrProcessorUnavailable, err)
	}

	uc.l.Infof(ctx, "webhook.usecase.Dispatch: accepted %s event %s for project %d", kind, event.PrimaryID(), event.ProjectID())

	return webhook.DispatchOutput{
		RequestID: envelope.RequestID,
		Kind:      kind,
		ProjectID: event.ProjectID(),
		PrimaryID: event.PrimaryID(),
	}, nil
}

// SupportedEventKinds lists the kinds that have a parser.
func (uc *usecase) SupportedEventKinds() []model.EventKind {
	return uc.registry.Kinds()
}
