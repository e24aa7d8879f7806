package drawer

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/bflex/internal/core/clock"
)

func newTestNavigator() (*Navigator, *clock.Fake) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(WithClock(fake), WithLogger(zerolog.Nop())), fake
}

func TestNavigator_NavigateTo_PushesPrevious(t *testing.T) {
	n, fake := newTestNavigator()

	n.NavigateTo(Config{Component: "ReservationDrawer", Key: "res"})
	fake.Advance(time.Minute)
	n.NavigateTo(Config{Component: "PaymentDrawer", Key: "pay"})

	require.NotNil(t, n.Active())
	assert.Equal(t, "pay", n.Active().Key)
	assert.Equal(t, 1, n.Depth())
	assert.True(t, n.CanNavigateBack())

	stack := n.Stack()
	require.Len(t, stack, 1)
	assert.Equal(t, "res", stack[0].Key)
	assert.Equal(t, fake.Now(), stack[0].PushedAt)
}

func TestNavigator_NavigateTo_WithoutStack(t *testing.T) {
	n, _ := newTestNavigator()
	skip := false

	n.NavigateTo(Config{Component: "A", Key: "a"})
	n.NavigateTo(Config{Component: "B", Key: "b", AddToStack: &skip})

	assert.Equal(t, 0, n.Depth())
	assert.Equal(t, "b", n.Active().Key)
}

func TestNavigator_NavigateBack_Order(t *testing.T) {
	n, _ := newTestNavigator()

	for _, k := range []string{"a", "b", "c"} {
		n.NavigateTo(Config{Component: strings.ToUpper(k), Key: k})
	}

	assert.True(t, n.NavigateBack())
	assert.Equal(t, "b", n.Active().Key)
	assert.True(t, n.NavigateBack())
	assert.Equal(t, "a", n.Active().Key)
	assert.False(t, n.NavigateBack())
	assert.Equal(t, "a", n.Active().Key)
}

func TestNavigator_Replace_KeepsStack(t *testing.T) {
	n, _ := newTestNavigator()

	n.NavigateTo(Config{Component: "A", Key: "a"})
	n.NavigateTo(Config{Component: "B", Key: "b"})
	n.Replace(Config{Component: "C", Key: "c"})

	assert.Equal(t, "c", n.Active().Key)
	assert.Equal(t, 1, n.Depth())
	n.NavigateBack()
	assert.Equal(t, "a", n.Active().Key)
}

func TestNavigator_CloseAll(t *testing.T) {
	n, _ := newTestNavigator()

	n.NavigateTo(Config{Component: "A"})
	n.NavigateTo(Config{Component: "B"})
	n.CloseAll()

	assert.Nil(t, n.Active())
	assert.Empty(t, n.Stack())
	assert.False(t, n.CanNavigateBack())
}

func TestNavigator_DefaultKeyAndProps(t *testing.T) {
	n, _ := newTestNavigator()

	a := n.NavigateTo(Config{Component: "RatePlan"})
	b := n.NavigateTo(Config{Component: "RatePlan"})

	assert.True(t, strings.HasPrefix(a.Key, "RatePlan-"))
	assert.NotEqual(t, a.Key, b.Key)
	assert.NotNil(t, a.Props)
}

func TestNavigator_Subscribe(t *testing.T) {
	n, _ := newTestNavigator()

	var depths []int
	unsubscribe := n.Subscribe(func(st State) {
		depths = append(depths, len(st.Stack))
	})

	n.NavigateTo(Config{Component: "A"})
	n.NavigateTo(Config{Component: "B"})
	n.NavigateBack()
	unsubscribe()
	n.CloseAll()

	assert.Equal(t, []int{0, 1, 0}, depths)
}

func TestNavigator_SubscriberNavigationIsDeliveredInOrder(t *testing.T) {
	n, _ := newTestNavigator()

	var keys []string
	n.Subscribe(func(st State) {
		if st.Active == nil {
			keys = append(keys, "")
			return
		}
		keys = append(keys, st.Active.Key)
		if st.Active.Key == "a" {
			n.NavigateTo(Config{Component: "B", Key: "b"})
		}
	})

	n.NavigateTo(Config{Component: "A", Key: "a"})

	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestNavigator_ConcurrentChangesDeliverFinalStateLast(t *testing.T) {
	n, _ := newTestNavigator()

	var (
		mu   sync.Mutex
		last State
	)
	n.Subscribe(func(st State) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.NavigateTo(Config{Component: "Drawer"})
			if i%2 == 0 {
				n.NavigateBack()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n.Stack(), last.Stack)
	require.NotNil(t, last.Active)
	assert.Equal(t, n.Active().Key, last.Active.Key)
}

func TestNavigator_Active_IsACopy(t *testing.T) {
	n, _ := newTestNavigator()
	n.NavigateTo(Config{Component: "A", Key: "a"})

	d := n.Active()
	d.Key = "mutated"

	assert.Equal(t, "a", n.Active().Key)
}
