package queue

import "errors"

var (
	ErrUnknownDomain = errors.New("unknown queue domain")
	ErrPublishNacked = errors.New("broker rejected publish")
	ErrMalformed     = errors.New("malformed queue message")
)
