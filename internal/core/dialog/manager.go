package dialog

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

// DefaultTransitionDelay is the close/open animation gap between two dialogs.
const DefaultTransitionDelay = 300 * time.Millisecond

// EventType identifies a dialog lifecycle transition.
type EventType string

const (
	EventQueued    EventType = "queued"
	EventActivated EventType = "activated"
	EventResolved  EventType = "resolved"
	EventRemoved   EventType = "removed"
)

// Event is delivered to subscribers after every transition. Dialog is a
// snapshot taken at the time of the transition.
type Event struct {
	Type   EventType
	Dialog Dialog

	// Result and Cancelled are set for EventResolved.
	Result    any
	Cancelled bool
}

// Listener receives manager events.
type Listener func(Event)

// Snapshot is a point-in-time view of the queue for presentation layers.
type Snapshot struct {
	Active *Dialog
	Queue  []Dialog
}

// Config holds the manager construction parameters.
type Config struct {
	Defaults        Defaults
	TransitionDelay time.Duration
}

// DefaultConfig returns the built-in defaults and transition delay.
func DefaultConfig() Config {
	return Config{
		Defaults:        DefaultDefaults(),
		TransitionDelay: DefaultTransitionDelay,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for transition timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

type entry struct {
	dialog  Dialog
	pending *Pending
}

type subscription struct {
	fn Listener
}

// Manager owns the dialog queue and the single active slot. It is safe for
// concurrent use; listeners run outside the manager lock, in event order.
type Manager struct {
	mu       sync.Mutex
	clock    clock.Clock
	log      zerolog.Logger
	delay    time.Duration
	defaults Defaults

	nextID  int64
	active  *entry
	queue   []*entry
	promote clock.Timer
	closed  bool

	subs        []*subscription
	outbox      []Event
	dispatching bool
}

// New creates a dialog manager.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		clock:    clock.Real(),
		log:      logging.Component("dialog"),
		delay:    max(cfg.TransitionDelay, 0),
		defaults: cfg.Defaults,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDefaults patches the defaults applied to future requests.
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

// Show admits a dialog request. The request becomes active immediately if
// the slot is free, otherwise it is queued behind earlier requests.
func (m *Manager) Show(opts Options) *Pending {
	m.mu.Lock()

	if m.closed {
		kind := cmp.Or(opts.Kind, m.defaults.Kind, KindConfirm)
		m.mu.Unlock()
		m.log.Warn().Str("title", opts.Title).Msg("dialog requested after manager closed")
		p := newPending(0)
		p.settle(CancelValue(kind), ErrClosed)
		return p
	}

	m.nextID++
	e := &entry{
		dialog:  m.build(m.nextID, opts),
		pending: newPending(m.nextID),
	}

	if m.active != nil {
		e.dialog.State = StatePending
		m.queue = append(m.queue, e)
		m.emit(Event{Type: EventQueued, Dialog: e.dialog})
		m.log.Debug().Int64("id", e.dialog.ID).Int("queued", len(m.queue)).Msg("dialog queued")
	} else {
		m.activate(e)
	}

	m.mu.Unlock()
	m.flush()
	return e.pending
}

// Resolve settles the active dialog with result. It is a no-op when no
// dialog is open.
func (m *Manager) Resolve(result any) {
	m.settle(0, func(Dialog) any { return result }, false)
}

// Cancel settles the active dialog with false for confirm dialogs and nil
// for every other kind. It is a no-op when no dialog is open.
func (m *Manager) Cancel() {
	m.settle(0, func(d Dialog) any { return CancelValue(d.Kind) }, true)
}

// Submit validates value against the active dialog's validator and
// resolves the dialog with it. A validation error is returned and the
// dialog stays open.
func (m *Manager) Submit(value string) error {
	m.mu.Lock()
	e := m.active
	if e == nil || e.dialog.State != StateActive {
		m.mu.Unlock()
		return nil
	}
	id, validator := e.dialog.ID, e.dialog.Validator
	m.mu.Unlock()

	if validator != nil {
		if err := validator(value); err != nil {
			return fmt.Errorf("dialog %d: %w", id, err)
		}
	}

	m.settle(id, func(Dialog) any { return value }, false)
	return nil
}

// settle resolves the active dialog. When id is non-zero only that dialog
// is settled. It reports whether a dialog was settled.
func (m *Manager) settle(id int64, valueOf func(Dialog) any, cancelled bool) bool {
	m.mu.Lock()

	e := m.active
	if e == nil || e.dialog.State != StateActive || (id != 0 && e.dialog.ID != id) {
		m.mu.Unlock()
		return false
	}

	result := valueOf(e.dialog)
	e.dialog.State = StateResolved
	e.dialog.Open = false
	e.dialog.ResolvedAt = m.clock.Now()
	e.pending.settle(result, nil)

	m.emit(Event{Type: EventResolved, Dialog: e.dialog, Result: result, Cancelled: cancelled})
	m.promote = m.clock.AfterFunc(m.delay, m.promoteNext)

	m.log.Debug().
		Int64("id", e.dialog.ID).
		Bool("cancelled", cancelled).
		Msg("dialog resolved")

	m.mu.Unlock()
	m.flush()
	return true
}

// promoteNext retires the resolved dialog and activates the queue head.
func (m *Manager) promoteNext() {
	m.mu.Lock()

	if m.closed || m.active == nil || m.active.dialog.State != StateResolved {
		m.mu.Unlock()
		return
	}

	prev := m.active
	prev.dialog.State = StateRemoved
	m.active = nil
	m.promote = nil
	m.emit(Event{Type: EventRemoved, Dialog: prev.dialog})

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.activate(next)
	}

	m.mu.Unlock()
	m.flush()
}

// activate puts e in the active slot. Caller holds mu.
func (m *Manager) activate(e *entry) {
	e.dialog.State = StateActive
	e.dialog.Open = true
	m.active = e
	m.emit(Event{Type: EventActivated, Dialog: e.dialog})
	m.log.Debug().Int64("id", e.dialog.ID).Str("type", string(e.dialog.Kind)).Msg("dialog active")
}

// build resolves opts against the defaults. Caller holds mu.
func (m *Manager) build(id int64, opts Options) Dialog {
	d := m.defaults

	props := opts.ComponentProps
	if props == nil {
		props = map[string]any{}
	}

	return Dialog{
		ID:               id,
		Title:            opts.Title,
		Message:          opts.Message,
		Kind:             cmp.Or(opts.Kind, d.Kind),
		Variant:          cmp.Or(opts.Variant, d.Variant),
		ConfirmText:      cmp.Or(opts.ConfirmText, d.ConfirmText),
		CancelText:       cmp.Or(opts.CancelText, d.CancelText),
		ShowCancel:       boolOr(opts.ShowCancel, d.ShowCancel),
		Size:             cmp.Or(opts.Size, d.Size),
		CloseOnOverlay:   boolOr(opts.CloseOnOverlay, d.CloseOnOverlay),
		InputValue:       opts.InputValue,
		InputPlaceholder: opts.InputPlaceholder,
		Validator:        opts.Validator,
		Component:        opts.Component,
		ComponentProps:   props,
		CreatedAt:        m.clock.Now(),
	}
}

// Active returns the dialog in the active slot. The slot stays occupied by
// a resolved dialog until its transition delay elapses.
func (m *Manager) Active() (Dialog, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Dialog{}, false
	}
	return m.active.dialog, true
}

// Len returns the number of queued (not active) dialogs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Snapshot returns the active dialog and the queue in admission order.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Snapshot
	if m.active != nil {
		d := m.active.dialog
		s.Active = &d
	}
	s.Queue = make([]Dialog, len(m.queue))
	for i, e := range m.queue {
		s.Queue[i] = e.dialog
	}
	return s
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

// Shutdown tears the manager down. Outstanding requests settle with ErrClosed
// and later calls to Show return an already settled Pending.
func (m *Manager) Shutdown() {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true

	if m.promote != nil {
		m.promote.Stop()
		m.promote = nil
	}

	outstanding := m.queue
	if m.active != nil {
		outstanding = append([]*entry{m.active}, outstanding...)
	}
	m.active = nil
	m.queue = nil

	for _, e := range outstanding {
		if e.dialog.State != StateResolved {
			e.pending.settle(CancelValue(e.dialog.Kind), ErrClosed)
		}
		e.dialog.State = StateRemoved
		e.dialog.Open = false
		m.emit(Event{Type: EventRemoved, Dialog: e.dialog})
	}

	m.log.Debug().Int("outstanding", len(outstanding)).Msg("dialog manager closed")

	m.mu.Unlock()
	m.flush()
}

// emit queues ev for delivery. Caller holds mu.
func (m *Manager) emit(ev Event) {
	m.outbox = append(m.outbox, ev)
}

// flush delivers queued events. Only one goroutine dispatches at a time so
// listeners observe events in transition order; events emitted by a
// listener are delivered after the current batch.
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
				m.deliver(s.fn, ev)
			}
		}

		m.mu.Lock()
	}

	m.dispatching = false
	m.mu.Unlock()
}

func (m *Manager) deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("event", string(ev.Type)).
				Int64("id", ev.Dialog.ID).
				Str("panic", fmt.Sprint(r)).
				Msg("dialog listener panicked")
		}
	}()
	fn(ev)
}

// Confirm shows a confirmation dialog with a cancel button.
func (m *Manager) Confirm(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindConfirm
	opts.ShowCancel = Bool(true)
	return m.Show(opts)
}

// Alert shows an informational dialog without a cancel button.
func (m *Manager) Alert(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindAlert
	opts.ShowCancel = Bool(false)
	return m.Show(opts)
}

// Prompt shows a text input dialog.
func (m *Manager) Prompt(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindPrompt
	opts.ShowCancel = Bool(true)
	return m.Show(opts)
}

// Error shows a danger alert titled "Error" unless opts sets a title.
func (m *Manager) Error(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindAlert
	opts.Variant = VariantDanger
	opts.Title = cmp.Or(opts.Title, "Error")
	opts.ShowCancel = Bool(false)
	return m.Show(opts)
}

// Warning shows a warning confirmation titled "Warning" unless opts sets a title.
func (m *Manager) Warning(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindConfirm
	opts.Variant = VariantWarning
	opts.Title = cmp.Or(opts.Title, "Warning")
	return m.Show(opts)
}

// Success shows a success alert titled "Success" unless opts sets a title.
func (m *Manager) Success(message string, opts Options) *Pending {
	opts.Message = message
	opts.Kind = KindAlert
	opts.Variant = VariantSuccess
	opts.Title = cmp.Or(opts.Title, "Success")
	opts.ShowCancel = Bool(false)
	return m.Show(opts)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
