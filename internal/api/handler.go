package api

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/eventbus"
	"github.com/colonyops/bflex/internal/core/logging"
)

// ErrorListener receives every handled failure with the caller context.
type ErrorListener func(info ErrorInfo, context map[string]any)

// Publisher receives classified failures for user notification.
type Publisher interface {
	PublishAPIFailed(eventbus.APIFailedPayload)
}

// ErrorHandler classifies API failures, fans them out to listeners and
// publishes them on the bus.
type ErrorHandler struct {
	pub Publisher
	log zerolog.Logger

	mu        sync.Mutex
	listeners []*ErrorListener
}

// NewErrorHandler creates a handler. pub may be nil.
func NewErrorHandler(pub Publisher) *ErrorHandler {
	return &ErrorHandler{pub: pub, log: logging.Component("api")}
}

// OnError registers fn and returns a func that removes it.
func (h *ErrorHandler) OnError(fn ErrorListener) func() {
	p := &fn

	h.mu.Lock()
	h.listeners = append(h.listeners, p)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.listeners = slices.DeleteFunc(h.listeners, func(x *ErrorListener) bool { return x == p })
	}
}

// Handle classifies err, notifies listeners and publishes api.failed.
func (h *ErrorHandler) Handle(ctx context.Context, err error, fields map[string]any) ErrorInfo {
	info := Classify(err)

	h.log.Warn().
		Ctx(ctx).
		Str("kind", string(info.Kind)).
		Int("status", info.Status).
		Msg(info.Message)

	h.mu.Lock()
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		(*fn)(info, fields)
	}

	if h.pub != nil {
		h.pub.PublishAPIFailed(eventbus.APIFailedPayload{
			Kind:      string(info.Kind),
			Status:    info.Status,
			Message:   info.Message,
			Details:   info.Details,
			Context:   fields,
			Timestamp: info.Timestamp,
		})
	}
	return info
}

// WithErrorHandling runs fn and routes a failure through h. The returned
// ErrorInfo is nil on success. ctx gets a request id unless it has one.
func WithErrorHandling[T any](ctx context.Context, h *ErrorHandler, fields map[string]any, fn func(context.Context) (T, error)) (T, *ErrorInfo) {
	if logging.GetRequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	v, err := fn(ctx)
	if err != nil {
		info := h.Handle(ctx, err, fields)
		var zero T
		return zero, &info
	}
	return v, nil
}
