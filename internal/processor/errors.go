package processor

import "errors"

var (
	ErrPoolSaturated = errors.New("processor pool is saturated")
	ErrStopped       = errors.New("processor is stopped")
)
