package parser

import "gitlab-metrics/internal/model"

// Parser turns a raw payload of one event kind into a typed event.
type Parser interface {
	EventKind() model.EventKind
	// IsPlausible is a cheap shape check run before full decoding.
	IsPlausible(payload []byte) bool
	Parse(payload []byte) (model.Event, error)
}
