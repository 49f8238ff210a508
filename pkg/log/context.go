package log

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	eventKindKey
)

// WithRequestID returns a context carrying the request id. Every line logged
// with that context gets a request_id field.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithEventKind returns a context carrying the webhook event kind.
func WithEventKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, eventKindKey, kind)
}

// RequestIDFrom returns the request id stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func eventKindFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(eventKindKey).(string)
	return v
}
