package logging

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	eventNameKey contextKey = "event"
)

// WithRequestID tags ctx with the id of the dialog or notification being handled.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithEventName tags ctx with the bridge event name being translated.
func WithEventName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, eventNameKey, name)
}

// GetRequestID returns the request id from ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetEventName returns the event name from ctx, or "".
func GetEventName(ctx context.Context) string {
	if name, ok := ctx.Value(eventNameKey).(string); ok {
		return name
	}
	return ""
}
