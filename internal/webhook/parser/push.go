package parser

import (
	"encoding/json"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/webhook"
)

var pushKind = objectKindPattern("push")

type pushParser struct{}

// NewPushParser returns the parser for push hooks.
func NewPushParser() Parser {
	return pushParser{}
}

func (pushParser) EventKind() model.EventKind { return model.KindPush }

func (pushParser) IsPlausible(payload []byte) bool {
	return pushKind.Match(payload) && hasKeys(payload, "project_id", "ref")
}

func (pushParser) Parse(payload []byte) (model.Event, error) {
	var event model.PushEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: parse push event: %w", webhook.ErrProcessing, err)
	}

	if event.ProjectID() == 0 {
		return nil, fmt.Errorf("%w: project_id in push event", webhook.ErrMissingField)
	}
	if event.Ref == "" {
		return nil, fmt.Errorf("%w: ref in push event", webhook.ErrMissingField)
	}
	if event.PrimaryID() == "" {
		return nil, fmt.Errorf("%w: checkout_sha in push event", webhook.ErrMissingField)
	}

	return &event, nil
}
