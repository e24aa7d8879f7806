// Package bridge translates named events from outside the core (legacy page
// scripts, other processes) into dialog and notification manager calls.
package bridge

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
)

// Dialog and notification events understood by the bridge.
const (
	EventNotification = "bflex:notification"
	EventNotify       = "bflex:notify"
	EventShowDialog   = "bflex:show-dialog"
	EventDialog       = "bflex:dialog"
	EventDialogResult = "bflex:dialog:result"
)

// Message is one named event with its JSON detail. Reply is nil when the
// sender does not expect an answer.
type Message struct {
	Name   string
	Detail json.RawMessage
	Reply  func([]byte) error
}

// Source delivers messages to handle until ctx is done.
type Source interface {
	Run(ctx context.Context, handle func(context.Context, Message)) error
}

// Emitter publishes events back to whoever is listening.
type Emitter interface {
	Emit(ctx context.Context, name string, detail []byte) error
}

// Dialogs is the part of the dialog manager the bridge drives.
type Dialogs interface {
	Show(opts dialog.Options) *dialog.Pending
}

// Notifier is the part of the notification manager the bridge drives.
type Notifier interface {
	Show(opts notify.Options) int64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithEmitter adds an emitter for bflex:dialog:result events.
func WithEmitter(e Emitter) Option {
	return func(b *Bridge) { b.emitters = append(b.emitters, e) }
}

// Bridge is safe for concurrent use.
type Bridge struct {
	dialogs  Dialogs
	notifier Notifier
	log      zerolog.Logger
	emitters []Emitter

	mu    sync.RWMutex
	allow []string

	drawers      Drawers
	calendar     Calendar
	reservations Reservations
	payments     Payments

	handlers map[string]func(context.Context, Message) error

	bgMu    sync.Mutex
	stopped bool
	bg      sync.WaitGroup
}

// New returns a bridge accepting names matching any of the allow globs.
// Patterns are assumed valid; config validation checks them.
func New(dialogs Dialogs, notifier Notifier, allow []string, opts ...Option) *Bridge {
	b := &Bridge{
		dialogs:  dialogs,
		notifier: notifier,
		log:      logging.Component("bridge"),
		allow:    allow,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.handlers = map[string]func(context.Context, Message) error{
		EventNotification: b.handleLegacyNotification,
		EventNotify:       b.handleNotify,
		EventShowDialog:   b.handleShowDialog,
		EventDialog:       b.handleLegacyDialog,

		EventDrawer:          b.handleDrawer,
		EventCalendarSync:    b.handleCalendarSync,
		EventCalendarReload:  b.handleCalendarReload,
		EventReservationOpen: b.handleReservationOpen,
		EventPaymentOpen:     b.handlePaymentOpen,
	}
	return b
}

// SetAllow replaces the allow globs.
func (b *Bridge) SetAllow(allow []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allow = allow
}

// Allowed reports whether name matches an allow glob.
func (b *Bridge) Allowed(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, p := range b.allow {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Run feeds every message from src through Handle until ctx is done.
func (b *Bridge) Run(ctx context.Context, src Source) error {
	return src.Run(ctx, b.Handle)
}

// Handle dispatches msg. Dropped and malformed messages are logged, never
// returned.
func (b *Bridge) Handle(ctx context.Context, msg Message) {
	ctx = logging.WithEventName(ctx, msg.Name)

	if !b.Allowed(msg.Name) {
		b.log.Debug().Ctx(ctx).Msg("event not allowed, dropped")
		return
	}
	h, ok := b.handlers[msg.Name]
	if !ok {
		b.log.Debug().Ctx(ctx).Msg("no handler for event, dropped")
		return
	}
	if err := h(ctx, msg); err != nil {
		b.log.Warn().Ctx(ctx).Err(err).Msg("bridge event rejected")
	}
}

// ErrStopped is returned by handlers that need a goroutine once Wait has
// been called.
var ErrStopped = errors.New("bridge stopped")

// spawn runs fn on a goroutine tracked by Wait.
func (b *Bridge) spawn(fn func()) error {
	b.bgMu.Lock()
	defer b.bgMu.Unlock()
	if b.stopped {
		return ErrStopped
	}
	b.bg.Add(1)
	go func() {
		defer b.bg.Done()
		fn()
	}()
	return nil
}

func (b *Bridge) isStopped() bool {
	b.bgMu.Lock()
	defer b.bgMu.Unlock()
	return b.stopped
}

// Wait refuses further background work and blocks until running work is
// done: legacy dialogs waiting to reply and drawer loads. Outstanding
// dialogs settle when the dialog manager shuts down.
func (b *Bridge) Wait() {
	b.bgMu.Lock()
	b.stopped = true
	b.bgMu.Unlock()
	b.bg.Wait()
}

// NotificationDetail is the wire form of notification options. Duration is
// in milliseconds and 0 means sticky.
type NotificationDetail struct {
	Type     notify.Type     `json:"type,omitempty"`
	Message  string          `json:"message"`
	Title    string          `json:"title,omitempty"`
	Duration *int64          `json:"duration,omitempty"`
	Closable *bool           `json:"closable,omitempty"`
	Icon     string          `json:"icon,omitempty"`
	ShowIcon *bool           `json:"showIcon,omitempty"`
	Position notify.Position `json:"position,omitempty"`
}

// Options converts the detail into manager options.
func (d NotificationDetail) Options() notify.Options {
	opts := notify.Options{
		Message:  d.Message,
		Type:     d.Type,
		Title:    d.Title,
		Closable: d.Closable,
		Icon:     d.Icon,
		ShowIcon: d.ShowIcon,
		Position: d.Position,
	}
	if d.Duration != nil {
		opts.Duration = notify.Duration(time.Duration(max(*d.Duration, 0)) * time.Millisecond)
	}
	return opts
}

func decode(msg Message, v any) error {
	if len(msg.Detail) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Detail, v); err != nil {
		return fmt.Errorf("decode %s detail: %w", msg.Name, err)
	}
	return nil
}

func (b *Bridge) handleLegacyNotification(ctx context.Context, msg Message) error {
	var d NotificationDetail
	if err := decode(msg, &d); err != nil {
		return err
	}
	if d.Message == "" {
		b.log.Debug().Ctx(ctx).Msg("legacy notification without message ignored")
		return nil
	}
	if d.Type == "error" {
		d.Type = notify.TypeDanger
	}
	b.notifier.Show(d.Options())
	return nil
}

func (b *Bridge) handleNotify(_ context.Context, msg Message) error {
	var d NotificationDetail
	if err := decode(msg, &d); err != nil {
		return err
	}
	b.notifier.Show(d.Options())
	return nil
}

func (b *Bridge) handleShowDialog(_ context.Context, msg Message) error {
	var opts dialog.Options
	if err := decode(msg, &opts); err != nil {
		return err
	}
	b.dialogs.Show(opts)
	return nil
}

// legacyDialogDetail carries the fields the old page API named differently.
// Every other key is read as a regular dialog option and wins over these.
type legacyDialogDetail struct {
	ID         json.RawMessage `json:"id"`
	Label      string          `json:"label"`
	ConfirmTxt string          `json:"confirmTxt"`
}

// DialogResult is the reply to a legacy dialog request.
type DialogResult struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result"`
}

func (b *Bridge) handleLegacyDialog(ctx context.Context, msg Message) error {
	var legacy legacyDialogDetail
	var opts dialog.Options
	if err := decode(msg, &legacy); err != nil {
		return err
	}
	if err := decode(msg, &opts); err != nil {
		return err
	}
	if opts.Message == "" {
		b.log.Debug().Ctx(ctx).Msg("legacy dialog without message ignored")
		return nil
	}

	opts.Title = cmp.Or(opts.Title, legacy.Label)
	opts.ConfirmText = cmp.Or(opts.ConfirmText, legacy.ConfirmTxt, "Confirm")
	opts.Kind = cmp.Or(opts.Kind, dialog.KindConfirm)
	opts.Variant = cmp.Or(opts.Variant, dialog.VariantPrimary)

	if b.isStopped() {
		return ErrStopped
	}

	pending := b.dialogs.Show(opts)
	if pending.Settled() && pending.ID() == 0 {
		return nil
	}

	id := legacy.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	} else {
		ctx = logging.WithRequestID(ctx, "legacy-"+strings.Trim(string(id), `"`))
	}

	replyCtx := context.WithoutCancel(ctx)
	return b.spawn(func() { b.replyWhenSettled(replyCtx, msg, id, pending) })
}

func (b *Bridge) replyWhenSettled(ctx context.Context, msg Message, id json.RawMessage, pending *dialog.Pending) {
	result, err := pending.Wait(ctx)
	if err != nil {
		b.log.Debug().Ctx(ctx).Err(err).Int64("dialog_id", pending.ID()).Msg("legacy dialog settled without result")
		return
	}

	body, err := json.Marshal(DialogResult{ID: id, Result: result})
	if err != nil {
		b.log.Error().Ctx(ctx).Err(err).Int64("dialog_id", pending.ID()).Msg("failed to encode dialog result")
		return
	}

	if msg.Reply != nil {
		if err := msg.Reply(body); err != nil {
			b.log.Warn().Ctx(ctx).Err(err).Int64("dialog_id", pending.ID()).Msg("failed to reply with dialog result")
		}
	}
	for _, e := range b.emitters {
		if err := e.Emit(ctx, EventDialogResult, body); err != nil {
			b.log.Warn().Ctx(ctx).Err(err).Int64("dialog_id", pending.ID()).Msg("failed to emit dialog result")
		}
	}
}
