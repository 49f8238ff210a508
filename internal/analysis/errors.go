package analysis

import "errors"

var ErrUnexpectedEvent = errors.New("unexpected event type for analysis domain")
