package webhook

import "errors"

var (
	ErrAuthentication = errors.New("webhook authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrProcessing     = errors.New("webhook processing failed")

	// The following always wrap ErrProcessing.
	ErrUnsupportedEventType = wrapProcessing("unsupported event type")
	ErrInvalidPayload       = wrapProcessing("invalid payload")
	ErrMissingField         = wrapProcessing("missing required field")
	ErrProcessorUnavailable = wrapProcessing("processor unavailable")

	ErrDuplicateEvent = errors.New("duplicate delivery")
)

type processingError struct {
	msg string
}

func (e *processingError) Error() string { return e.msg }

func (e *processingError) Unwrap() error { return ErrProcessing }

func wrapProcessing(msg string) error {
	return &processingError{msg: msg}
}
