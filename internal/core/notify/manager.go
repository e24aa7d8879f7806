package notify

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/clock"
	"github.com/colonyops/bflex/internal/core/logging"
)

// DefaultRemovalDelay is the close animation time before a closed
// notification leaves the collection.
const DefaultRemovalDelay = 300 * time.Millisecond

// EventType identifies a notification lifecycle transition.
type EventType string

const (
	EventShown   EventType = "shown"
	EventClosed  EventType = "closed"
	EventRemoved EventType = "removed"
)

// Event is delivered to subscribers after every transition.
type Event struct {
	Type         EventType
	Notification Notification
}

// Listener receives manager events.
type Listener func(Event)

// Config holds the manager construction parameters.
type Config struct {
	Defaults     Defaults
	RemovalDelay time.Duration
}

// DefaultConfig returns the built-in defaults and removal delay.
func DefaultConfig() Config {
	return Config{
		Defaults:     DefaultDefaults(),
		RemovalDelay: DefaultRemovalDelay,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for auto-close and removal timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

type entry struct {
	n       Notification
	onClose func()
	expiry  clock.Timer
	removal clock.Timer
}

type subscription struct {
	fn Listener
}

// Manager owns the visible notifications. Any number may be open at once.
// It is safe for concurrent use; listeners and OnClose callbacks run
// outside the manager lock.
type Manager struct {
	mu           sync.Mutex
	clock        clock.Clock
	log          zerolog.Logger
	defaults     Defaults
	removalDelay time.Duration

	nextID int64
	items  []*entry
	closed bool

	subs        []*subscription
	outbox      []Event
	dispatching bool
}

// New creates a notification manager.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		clock:        clock.Real(),
		log:          logging.Component("notify"),
		defaults:     cfg.Defaults,
		removalDelay: max(cfg.RemovalDelay, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDefaults patches the defaults applied to future notifications.
func (m *Manager) SetDefaults(patch DefaultsPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	patch.apply(&m.defaults)
}

// Defaults returns the current defaults.
func (m *Manager) Defaults() Defaults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// Show admits a notification and returns its id. A notification without a
// message is logged and rejected with InvalidID.
func (m *Manager) Show(opts Options) int64 {
	if opts.Message == "" {
		m.log.Error().Str("title", opts.Title).Msg("notification message is required")
		return InvalidID
	}

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		m.log.Warn().Str("message", opts.Message).Msg("notification shown after manager closed")
		return InvalidID
	}

	m.nextID++
	e := &entry{
		n:       m.build(m.nextID, opts),
		onClose: opts.OnClose,
	}
	m.items = append(m.items, e)
	m.emit(Event{Type: EventShown, Notification: e.n})

	if e.n.Duration > 0 {
		id := e.n.ID
		e.expiry = m.clock.AfterFunc(e.n.Duration, func() { m.Close(id) })
	}

	m.log.Debug().
		Int64("id", e.n.ID).
		Str("type", string(e.n.Type)).
		Str("position", string(e.n.Position)).
		Dur("duration", e.n.Duration).
		Msg("notification shown")

	id := e.n.ID
	m.mu.Unlock()
	m.flush()
	return id
}

// build resolves opts against the defaults. Caller holds mu.
func (m *Manager) build(id int64, opts Options) Notification {
	d := m.defaults

	typ := cmp.Or(opts.Type, TypeNeutral)
	if !typ.IsValid() {
		m.log.Warn().Str("type", string(typ)).Msg("unknown notification type, using neutral")
		typ = TypeNeutral
	}

	pos := cmp.Or(opts.Position, d.Position)
	if !pos.IsValid() {
		m.log.Warn().Str("position", string(pos)).Msg("unknown notification position, using default")
		pos = d.Position
	}

	duration := d.Duration
	if opts.Duration != nil {
		duration = max(*opts.Duration, 0)
	}

	showIcon := boolOr(opts.ShowIcon, d.ShowIcon)
	icon := opts.Icon
	if icon == "" && showIcon {
		icon = typ.Icon()
	}

	return Notification{
		ID:        id,
		Type:      typ,
		Message:   opts.Message,
		Title:     opts.Title,
		Duration:  duration,
		Closable:  boolOr(opts.Closable, d.Closable),
		Icon:      icon,
		ShowIcon:  showIcon,
		Position:  pos,
		Action:    opts.Action,
		Open:      true,
		State:     StateActive,
		CreatedAt: m.clock.Now(),
	}
}

// Close marks the notification closed, fires its OnClose callback and
// schedules its removal. Unknown or already closed ids are ignored.
func (m *Manager) Close(id int64) {
	m.mu.Lock()

	e := m.find(id)
	if e == nil || !e.n.Open {
		m.mu.Unlock()
		return
	}

	e.n.Open = false
	e.n.State = StateResolved
	e.n.ClosedAt = m.clock.Now()
	if e.expiry != nil {
		e.expiry.Stop()
		e.expiry = nil
	}
	onClose := e.onClose
	e.onClose = nil

	m.emit(Event{Type: EventClosed, Notification: e.n})
	e.removal = m.clock.AfterFunc(m.removalDelay, func() { m.remove(id) })

	m.log.Debug().Int64("id", id).Msg("notification closed")

	m.mu.Unlock()

	if onClose != nil {
		m.safely("on_close", id, onClose)
	}
	m.flush()
}

// CloseAll closes every open notification.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.items))
	for _, e := range m.items {
		if e.n.Open {
			ids = append(ids, e.n.ID)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// Act runs the action handler of an open notification. It reports whether
// a handler ran.
func (m *Manager) Act(id int64) bool {
	m.mu.Lock()
	e := m.find(id)
	if e == nil || !e.n.Open || e.n.Action == nil || e.n.Action.Handler == nil {
		m.mu.Unlock()
		return false
	}
	handler := e.n.Action.Handler
	m.mu.Unlock()

	m.safely("action", id, handler)
	return true
}

// remove drops a closed notification from the collection.
func (m *Manager) remove(id int64) {
	m.mu.Lock()

	idx := slices.IndexFunc(m.items, func(e *entry) bool { return e.n.ID == id })
	if idx < 0 || m.items[idx].n.State != StateResolved {
		m.mu.Unlock()
		return
	}

	e := m.items[idx]
	e.n.State = StateRemoved
	e.removal = nil
	m.items = slices.Delete(m.items, idx, idx+1)
	m.emit(Event{Type: EventRemoved, Notification: e.n})

	m.mu.Unlock()
	m.flush()
}

// find returns the entry for id. Caller holds mu.
func (m *Manager) find(id int64) *entry {
	for _, e := range m.items {
		if e.n.ID == id {
			return e
		}
	}
	return nil
}

// Notifications returns every notification not yet removed, in admission order.
func (m *Manager) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Notification, len(m.items))
	for i, e := range m.items {
		out[i] = e.n
	}
	return out
}

// Get returns the notification for id if it has not been removed.
func (m *Manager) Get(id int64) (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e := m.find(id); e != nil {
		return e.n, true
	}
	return Notification{}, false
}

// ByPosition returns the notifications rendered at p, in admission order.
func (m *Manager) ByPosition(p Position) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Notification
	for _, e := range m.items {
		if e.n.Position == p {
			out = append(out, e.n)
		}
	}
	return out
}

// ActivePositions returns the positions holding at least one notification,
// in the order they first appear.
func (m *Manager) ActivePositions() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Position
	for _, e := range m.items {
		if !slices.Contains(out, e.n.Position) {
			out = append(out, e.n.Position)
		}
	}
	return out
}

// Grouped returns notifications keyed by position. Every position is
// present, empty ones map to an empty slice.
func (m *Manager) Grouped() map[Position][]Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[Position][]Notification, len(Positions))
	for _, p := range Positions {
		out[p] = []Notification{}
	}
	for _, e := range m.items {
		out[e.n.Position] = append(out[e.n.Position], e.n)
	}
	return out
}

// Subscribe registers fn for lifecycle events and returns its unsubscribe func.
func (m *Manager) Subscribe(fn Listener) func() {
	s := &subscription{fn: fn}

	m.mu.Lock()
	m.subs = append(m.subs, s)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.subs = slices.DeleteFunc(m.subs, func(x *subscription) bool { return x == s })
	}
}

// Shutdown stops every timer and empties the collection. OnClose callbacks
// do not fire. Later calls to Show are rejected.
func (m *Manager) Shutdown() {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	for _, e := range m.items {
		if e.expiry != nil {
			e.expiry.Stop()
		}
		if e.removal != nil {
			e.removal.Stop()
		}
		e.n.Open = false
		e.n.State = StateRemoved
		m.emit(Event{Type: EventRemoved, Notification: e.n})
	}
	m.log.Debug().Int("visible", len(m.items)).Msg("notification manager closed")
	m.items = nil

	m.mu.Unlock()
	m.flush()
}

// Success shows a success notification.
func (m *Manager) Success(message string, opts Options) int64 {
	opts.Message = message
	opts.Type = TypeSuccess
	return m.Show(opts)
}

// Error shows a danger notification.
func (m *Manager) Error(message string, opts Options) int64 {
	opts.Message = message
	opts.Type = TypeDanger
	return m.Show(opts)
}

// Warning shows a warning notification.
func (m *Manager) Warning(message string, opts Options) int64 {
	opts.Message = message
	opts.Type = TypeWarning
	return m.Show(opts)
}

// Info shows a primary notification.
func (m *Manager) Info(message string, opts Options) int64 {
	opts.Message = message
	opts.Type = TypePrimary
	return m.Show(opts)
}

// emit queues ev for delivery. Caller holds mu.
func (m *Manager) emit(ev Event) {
	m.outbox = append(m.outbox, ev)
}

// flush delivers queued events in order from a single goroutine at a time.
func (m *Manager) flush() {
	m.mu.Lock()
	if m.dispatching {
		m.mu.Unlock()
		return
	}
	m.dispatching = true

	for len(m.outbox) > 0 {
		batch := m.outbox
		m.outbox = nil
		subs := slices.Clone(m.subs)
		m.mu.Unlock()

		for _, ev := range batch {
			for _, s := range subs {
				m.safely(string(ev.Type), ev.Notification.ID, func() { s.fn(ev) })
			}
		}

		m.mu.Lock()
	}

	m.dispatching = false
	m.mu.Unlock()
}

func (m *Manager) safely(what string, id int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("callback", what).
				Int64("id", id).
				Str("panic", fmt.Sprint(r)).
				Msg("notification callback panicked")
		}
	}()
	fn()
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
