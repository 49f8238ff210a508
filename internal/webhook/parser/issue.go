package parser

import (
	"encoding/json"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/webhook"
)

var issueKind = objectKindPattern("issue")

type issueParser struct{}

// NewIssueParser returns the parser for issue hooks.
func NewIssueParser() Parser {
	return issueParser{}
}

func (issueParser) EventKind() model.EventKind { return model.KindIssue }

func (issueParser) IsPlausible(payload []byte) bool {
	return issueKind.Match(payload) && hasKeys(payload, "object_attributes")
}

func (issueParser) Parse(payload []byte) (model.Event, error) {
	var event model.IssueEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: parse issue event: %w", webhook.ErrProcessing, err)
	}

	if event.PrimaryID() == "" {
		return nil, fmt.Errorf("%w: object_attributes.id in issue event", webhook.ErrMissingField)
	}
	if event.ProjectID() == 0 {
		return nil, fmt.Errorf("%w: project id in issue event", webhook.ErrMissingField)
	}

	return &event, nil
}
