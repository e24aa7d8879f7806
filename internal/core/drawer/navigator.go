// Package drawer tracks the side drawer shown by the admin UI and the stack
// of drawers the user can navigate back to.
package drawer

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/clock"
	"github.com/colonyops/bflex/internal/core/logging"
)

// Drawer is one entry of the navigation stack.
type Drawer struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	Key       string         `json:"key"`
	PushedAt  time.Time      `json:"pushed_at,omitzero"`
}

// Config describes the drawer to open. AddToStack defaults to true.
type Config struct {
	Component  string
	Props      map[string]any
	Key        string
	AddToStack *bool
}

// State is the navigator state handed to subscribers.
type State struct {
	Active *Drawer
	Stack  []Drawer
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithClock sets the clock used to stamp pushed drawers.
func WithClock(c clock.Clock) Option {
	return func(n *Navigator) { n.clock = c }
}

// WithLogger sets the navigator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(n *Navigator) { n.log = l }
}

// WithKeyFunc overrides key generation for drawers opened without a key.
func WithKeyFunc(fn func(component string) string) Option {
	return func(n *Navigator) { n.keyOf = fn }
}

// Navigator is safe for concurrent use. Subscribers run outside the lock
// and see states in the order the changes were made.
type Navigator struct {
	mu     sync.Mutex
	clock  clock.Clock
	log    zerolog.Logger
	keyOf  func(string) string
	active *Drawer
	stack  []Drawer

	subs        []*subscription
	outbox      []State
	dispatching bool
}

type subscription struct {
	fn func(State)
}

// New returns an empty navigator.
func New(opts ...Option) *Navigator {
	n := &Navigator{
		clock: clock.Real(),
		log:   logging.Component("drawer"),
		keyOf: defaultKey,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func defaultKey(component string) string {
	return fmt.Sprintf("%s-%s", component, uuid.NewString())
}

// NavigateTo opens cfg. The current drawer is pushed first unless
// cfg.AddToStack is false.
func (n *Navigator) NavigateTo(cfg Config) Drawer {
	n.mu.Lock()
	if n.active != nil && (cfg.AddToStack == nil || *cfg.AddToStack) {
		prev := *n.active
		prev.PushedAt = n.clock.Now()
		n.stack = append(n.stack, prev)
	}
	d := n.build(cfg)
	n.active = &d
	n.log.Debug().Str("component", d.Component).Str("key", d.Key).Int("depth", len(n.stack)).Msg("drawer opened")
	n.emit()
	n.mu.Unlock()

	n.flush()
	return d
}

// Replace swaps the active drawer without touching the stack.
func (n *Navigator) Replace(cfg Config) Drawer {
	n.mu.Lock()
	d := n.build(cfg)
	n.active = &d
	n.emit()
	n.mu.Unlock()

	n.flush()
	return d
}

// NavigateBack restores the most recently pushed drawer. It reports false
// when the stack is empty.
func (n *Navigator) NavigateBack() bool {
	n.mu.Lock()
	if len(n.stack) == 0 {
		n.mu.Unlock()
		return false
	}
	prev := n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	n.active = &prev
	n.emit()
	n.mu.Unlock()

	n.flush()
	return true
}

// CloseAll closes the active drawer and clears the stack.
func (n *Navigator) CloseAll() {
	n.mu.Lock()
	n.active = nil
	n.stack = nil
	n.emit()
	n.mu.Unlock()

	n.flush()
}

func (n *Navigator) CanNavigateBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack) > 0
}

// Depth is the number of drawers on the back stack.
func (n *Navigator) Depth() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack)
}

// Active returns a copy of the active drawer, or nil.
func (n *Navigator) Active() *Drawer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state().Active
}

// Stack returns the back stack, oldest first.
func (n *Navigator) Stack() []Drawer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.stack)
}

// Subscribe registers fn for state changes and returns its unsubscribe func.
func (n *Navigator) Subscribe(fn func(State)) func() {
	s := &subscription{fn: fn}

	n.mu.Lock()
	n.subs = append(n.subs, s)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.subs = slices.DeleteFunc(n.subs, func(x *subscription) bool { return x == s })
	}
}

// build creates the drawer for cfg. Caller holds mu.
func (n *Navigator) build(cfg Config) Drawer {
	props := cfg.Props
	if props == nil {
		props = map[string]any{}
	}
	key := cfg.Key
	if key == "" {
		key = n.keyOf(cfg.Component)
	}
	return Drawer{Component: cfg.Component, Props: props, Key: key}
}

// state snapshots the navigator. Caller holds mu.
func (n *Navigator) state() State {
	st := State{Stack: slices.Clone(n.stack)}
	if n.active != nil {
		d := *n.active
		st.Active = &d
	}
	return st
}

// emit queues the current state for delivery. Caller holds mu.
func (n *Navigator) emit() {
	n.outbox = append(n.outbox, n.state())
}

// flush delivers queued states. One goroutine dispatches at a time.
func (n *Navigator) flush() {
	n.mu.Lock()
	if n.dispatching {
		n.mu.Unlock()
		return
	}
	n.dispatching = true

	for len(n.outbox) > 0 {
		batch := n.outbox
		n.outbox = nil
		subs := slices.Clone(n.subs)
		n.mu.Unlock()

		for _, st := range batch {
			for _, s := range subs {
				n.deliver(s.fn, st)
			}
		}

		n.mu.Lock()
	}

	n.dispatching = false
	n.mu.Unlock()
}

func (n *Navigator) deliver(fn func(State), st State) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Str("panic", fmt.Sprint(r)).Msg("drawer subscriber panicked")
		}
	}()
	fn(st)
}
