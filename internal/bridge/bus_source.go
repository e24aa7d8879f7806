package bridge

import (
	"context"

	"github.com/colonyops/bflex/internal/core/eventbus"
)

// BusSource delivers legacy events published on the in-process bus.
type BusSource struct {
	bus *eventbus.EventBus
}

// NewBusSource returns a source reading legacy.received from bus.
func NewBusSource(bus *eventbus.EventBus) *BusSource {
	return &BusSource{bus: bus}
}

// Run subscribes to the bus and blocks until ctx is done. The bus keeps no
// way to unsubscribe, so messages arriving after ctx ends are discarded.
func (s *BusSource) Run(ctx context.Context, handle func(context.Context, Message)) error {
	s.bus.SubscribeLegacyReceived(func(p eventbus.LegacyReceivedPayload) {
		if ctx.Err() != nil {
			return
		}
		handle(ctx, Message{Name: p.Name, Detail: p.Detail, Reply: p.Reply})
	})
	<-ctx.Done()
	return nil
}
