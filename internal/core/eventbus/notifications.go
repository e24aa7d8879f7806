package eventbus

import (
	"time"

	"github.com/colonyops/bflex/internal/core/notify"
)

// APIErrorDuration is how long API failure notifications stay visible.
const APIErrorDuration = 5 * time.Second

// Notifier is the part of the notification manager the router needs.
type Notifier interface {
	Show(opts notify.Options) int64
}

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus      *EventBus
	notifier Notifier
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus, notifier Notifier) *NotificationRouter {
	return &NotificationRouter{bus: bus, notifier: notifier}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil || r.notifier == nil {
		return
	}

	r.bus.SubscribeAPIFailed(func(p APIFailedPayload) {
		if p.Message == "" {
			return
		}
		r.notifier.Show(notify.Options{
			Type:     notify.TypeDanger,
			Title:    "Error",
			Message:  p.Message,
			Duration: notify.Duration(APIErrorDuration),
		})
	})
}
