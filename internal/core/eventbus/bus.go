package eventbus

import (
	"context"
	"slices"
	"sync"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers published events to subscribers from a single
// goroutine started by Start. Publishing never blocks; events published
// while the buffer is full are dropped and reported to OnDrop hooks.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size.
func New(size int) *EventBus {
	return &EventBus{
		ch:   make(chan envelope, max(size, 1)),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is done.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := slices.Clone(bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

// PublishAPIFailed publishes an api.failed event.
func (bus *EventBus) PublishAPIFailed(p APIFailedPayload) {
	bus.send(EventAPIFailed, p)
}

// SubscribeAPIFailed registers fn for api.failed events.
func (bus *EventBus) SubscribeAPIFailed(fn func(APIFailedPayload)) {
	bus.subscribe(EventAPIFailed, func(p any) { fn(p.(APIFailedPayload)) })
}

// PublishDialogResolved publishes a dialog.resolved event.
func (bus *EventBus) PublishDialogResolved(p DialogResolvedPayload) {
	bus.send(EventDialogResolved, p)
}

// SubscribeDialogResolved registers fn for dialog.resolved events.
func (bus *EventBus) SubscribeDialogResolved(fn func(DialogResolvedPayload)) {
	bus.subscribe(EventDialogResolved, func(p any) { fn(p.(DialogResolvedPayload)) })
}

// PublishLegacyReceived publishes a legacy.received event.
func (bus *EventBus) PublishLegacyReceived(p LegacyReceivedPayload) {
	bus.send(EventLegacyReceived, p)
}

// SubscribeLegacyReceived registers fn for legacy.received events.
func (bus *EventBus) SubscribeLegacyReceived(fn func(LegacyReceivedPayload)) {
	bus.subscribe(EventLegacyReceived, func(p any) { fn(p.(LegacyReceivedPayload)) })
}

// PublishNotificationClosed publishes a notification.closed event.
func (bus *EventBus) PublishNotificationClosed(p NotificationClosedPayload) {
	bus.send(EventNotificationClosed, p)
}

// SubscribeNotificationClosed registers fn for notification.closed events.
func (bus *EventBus) SubscribeNotificationClosed(fn func(NotificationClosedPayload)) {
	bus.subscribe(EventNotificationClosed, func(p any) { fn(p.(NotificationClosedPayload)) })
}
