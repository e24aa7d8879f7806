// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within bflex.
package eventbus

import (
	"encoding/json"
	"time"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/notify"
)

// Event names a bus topic.
type Event string

// Keep list sorted A-Z
const (
	EventAPIFailed          Event = "api.failed"
	EventDialogResolved     Event = "dialog.resolved"
	EventLegacyReceived     Event = "legacy.received"
	EventNotificationClosed Event = "notification.closed"
)

// Events lists every event type with its payload struct.
var Events = map[Event]any{
	EventAPIFailed:          APIFailedPayload{},
	EventDialogResolved:     DialogResolvedPayload{},
	EventLegacyReceived:     LegacyReceivedPayload{},
	EventNotificationClosed: NotificationClosedPayload{},
}

// APIFailedPayload is emitted when a REST call fails and has been classified.
type APIFailedPayload struct {
	Kind      string
	Status    int
	Message   string
	Details   any
	Context   map[string]any
	Timestamp time.Time
}

// DialogResolvedPayload is emitted when a dialog settles.
type DialogResolvedPayload struct {
	Dialog    dialog.Dialog
	Result    any
	Cancelled bool
}

// LegacyReceivedPayload carries a named event raised by pre-framework code.
// Reply is nil when the sender does not expect an answer.
type LegacyReceivedPayload struct {
	Name   string
	Detail json.RawMessage
	Reply  func([]byte) error
}

// NotificationClosedPayload is emitted when a notification closes.
type NotificationClosedPayload struct {
	Notification notify.Notification
}
