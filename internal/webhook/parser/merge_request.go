package parser

import (
	"encoding/json"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/webhook"
)

var mergeRequestKind = objectKindPattern("merge_request")

type mergeRequestParser struct{}

// NewMergeRequestParser returns the parser for merge request hooks.
func NewMergeRequestParser() Parser {
	return mergeRequestParser{}
}

func (mergeRequestParser) EventKind() model.EventKind { return model.KindMergeRequest }

func (mergeRequestParser) IsPlausible(payload []byte) bool {
	return mergeRequestKind.Match(payload) && hasKeys(payload, "object_attributes")
}

func (mergeRequestParser) Parse(payload []byte) (model.Event, error) {
	var event model.MergeRequestEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: parse merge request event: %w", webhook.ErrProcessing, err)
	}

	if event.PrimaryID() == "" {
		return nil, fmt.Errorf("%w: object_attributes.id in merge request event", webhook.ErrMissingField)
	}
	if event.ProjectID() == 0 {
		return nil, fmt.Errorf("%w: project id in merge request event", webhook.ErrMissingField)
	}

	return &event, nil
}
