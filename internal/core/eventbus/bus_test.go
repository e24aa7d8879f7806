package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/bflex/internal/core/eventbus"
)

func startBus(t *testing.T, size int) *eventbus.EventBus {
	t.Helper()
	bus := eventbus.New(size)
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)
	return bus
}

func TestEventBus_DeliversInOrder(t *testing.T) {
	bus := startBus(t, 16)

	var (
		mu  sync.Mutex
		got []string
	)
	bus.SubscribeLegacyReceived(func(p eventbus.LegacyReceivedPayload) {
		mu.Lock()
		got = append(got, p.Name)
		mu.Unlock()
	})

	for _, name := range []string{"a", "b", "c"} {
		bus.PublishLegacyReceived(eventbus.LegacyReceivedPayload{Name: name})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEventBus_PanickingSubscriberDoesNotStopDispatch(t *testing.T) {
	bus := startBus(t, 16)

	panicked := make(chan eventbus.Event, 1)
	bus.OnPanic(func(ev eventbus.Event, _ any, _ any) { panicked <- ev })

	delivered := make(chan struct{}, 1)
	bus.SubscribeAPIFailed(func(eventbus.APIFailedPayload) { panic("boom") })
	bus.SubscribeAPIFailed(func(eventbus.APIFailedPayload) { delivered <- struct{}{} })

	bus.PublishAPIFailed(eventbus.APIFailedPayload{Message: "x"})

	select {
	case ev := <-panicked:
		assert.Equal(t, eventbus.EventAPIFailed, ev)
	case <-time.After(time.Second):
		t.Fatal("panic hook not called")
	}
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("second subscriber not called")
	}
}

func TestEventBus_OnSubscribe(t *testing.T) {
	bus := eventbus.New(1)

	var subscribed []eventbus.Event
	bus.OnSubscribe(func(ev eventbus.Event) { subscribed = append(subscribed, ev) })

	bus.SubscribeDialogResolved(func(eventbus.DialogResolvedPayload) {})
	bus.SubscribeNotificationClosed(func(eventbus.NotificationClosedPayload) {})

	assert.Equal(t, []eventbus.Event{eventbus.EventDialogResolved, eventbus.EventNotificationClosed}, subscribed)
}

func TestEventBus_OtherTopicsNotDelivered(t *testing.T) {
	bus := startBus(t, 16)

	called := make(chan struct{}, 1)
	bus.SubscribeDialogResolved(func(eventbus.DialogResolvedPayload) { called <- struct{}{} })
	bus.PublishAPIFailed(eventbus.APIFailedPayload{})

	select {
	case <-called:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}
