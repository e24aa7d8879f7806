package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/bflex/internal/core/clock"
	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	opts []notify.Options
}

func (r *recordingNotifier) Show(opts notify.Options) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = append(r.opts, opts)
	return int64(len(r.opts))
}

func (r *recordingNotifier) shown() []notify.Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Options(nil), r.opts...)
}

type recordingEmitter struct {
	ch chan []byte
}

func (e *recordingEmitter) Emit(_ context.Context, name string, detail []byte) error {
	if name == EventDialogResult {
		e.ch <- detail
	}
	return nil
}

func newTestBridge(t *testing.T, opts ...Option) (*Bridge, *dialog.Manager, *recordingNotifier) {
	t.Helper()
	dialogs := dialog.New(dialog.DefaultConfig(),
		dialog.WithClock(clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))),
		dialog.WithLogger(zerolog.Nop()),
	)
	t.Cleanup(dialogs.Shutdown)

	notifier := &recordingNotifier{}
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New(dialogs, notifier, []string{"bflex:*"}, opts...), dialogs, notifier
}

func msg(name, detail string) Message {
	return Message{Name: name, Detail: json.RawMessage(detail)}
}

func TestBridge_LegacyNotification(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		want   []notify.Options
	}{
		{
			name:   "error maps to danger",
			detail: `{"type":"error","message":"Payment failed","title":"Oops"}`,
			want:   []notify.Options{{Type: notify.TypeDanger, Message: "Payment failed", Title: "Oops"}},
		},
		{
			name:   "type kept",
			detail: `{"type":"success","message":"Saved"}`,
			want:   []notify.Options{{Type: notify.TypeSuccess, Message: "Saved"}},
		},
		{
			name:   "duration in milliseconds",
			detail: `{"message":"Soon","duration":1500}`,
			want:   []notify.Options{{Message: "Soon", Duration: notify.Duration(1500 * time.Millisecond)}},
		},
		{
			name:   "zero duration is sticky",
			detail: `{"message":"Stay","duration":0}`,
			want:   []notify.Options{{Message: "Stay", Duration: notify.Duration(0)}},
		},
		{
			name:   "missing message ignored",
			detail: `{"type":"error","title":"Nothing"}`,
		},
		{
			name:   "malformed detail ignored",
			detail: `{"message":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, notifier := newTestBridge(t)
			b.Handle(context.Background(), msg(EventNotification, tt.detail))
			assert.Equal(t, tt.want, notifier.shown())
		})
	}
}

func TestBridge_NotifyPassesOptions(t *testing.T) {
	b, _, notifier := newTestBridge(t)

	b.Handle(context.Background(), msg(EventNotify, `{"type":"warning","message":"Low quota","position":"top-right","showIcon":false}`))

	got := notifier.shown()
	require.Len(t, got, 1)
	assert.Equal(t, notify.TypeWarning, got[0].Type)
	assert.Equal(t, notify.PositionTopRight, got[0].Position)
	require.NotNil(t, got[0].ShowIcon)
	assert.False(t, *got[0].ShowIcon)
}

func TestBridge_NotifyDoesNotMapError(t *testing.T) {
	b, _, notifier := newTestBridge(t)

	b.Handle(context.Background(), msg(EventNotify, `{"type":"error","message":"x"}`))

	got := notifier.shown()
	require.Len(t, got, 1)
	assert.Equal(t, notify.Type("error"), got[0].Type)
}

func TestBridge_ShowDialog(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	b.Handle(context.Background(), msg(EventShowDialog, `{"type":"alert","title":"Heads up","message":"Sync finished","variant":"success"}`))

	active, ok := dialogs.Active()
	require.True(t, ok)
	assert.Equal(t, dialog.KindAlert, active.Kind)
	assert.Equal(t, "Heads up", active.Title)
	assert.Equal(t, dialog.VariantSuccess, active.Variant)
}

func TestBridge_LegacyDialogMapsFields(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	b.Handle(context.Background(), msg(EventDialog, `{"id":7,"label":"Cancel booking","message":"Are you sure?","variant":"danger","confirmTxt":"Yes"}`))

	active, ok := dialogs.Active()
	require.True(t, ok)
	assert.Equal(t, dialog.KindConfirm, active.Kind)
	assert.Equal(t, "Cancel booking", active.Title)
	assert.Equal(t, "Yes", active.ConfirmText)
	assert.Equal(t, dialog.VariantDanger, active.Variant)

	dialogs.Cancel()
	b.Wait()
}

func TestBridge_LegacyDialogDefaultsAndOverrides(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	b.Handle(context.Background(), msg(EventDialog, `{"message":"Continue?","title":"Explicit","label":"ignored"}`))

	active, ok := dialogs.Active()
	require.True(t, ok)
	assert.Equal(t, "Explicit", active.Title)
	assert.Equal(t, "Confirm", active.ConfirmText)
	assert.Equal(t, dialog.VariantPrimary, active.Variant)

	dialogs.Resolve(true)
	b.Wait()
}

func TestBridge_LegacyDialogRepliesWithResult(t *testing.T) {
	emitter := &recordingEmitter{ch: make(chan []byte, 1)}
	b, dialogs, _ := newTestBridge(t, WithEmitter(emitter))

	replies := make(chan []byte, 1)
	m := msg(EventDialog, `{"id":"res-42","message":"Delete?"}`)
	m.Reply = func(body []byte) error {
		replies <- body
		return nil
	}

	b.Handle(context.Background(), m)
	dialogs.Resolve(true)
	b.Wait()

	require.Len(t, replies, 1)
	assert.JSONEq(t, `{"id":"res-42","result":true}`, string(<-replies))
	require.Len(t, emitter.ch, 1)
	assert.JSONEq(t, `{"id":"res-42","result":true}`, string(<-emitter.ch))
}

func TestBridge_LegacyDialogCancelRepliesFalse(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	replies := make(chan []byte, 1)
	m := msg(EventDialog, `{"message":"Delete?"}`)
	m.Reply = func(body []byte) error {
		replies <- body
		return nil
	}

	b.Handle(context.Background(), m)
	dialogs.Cancel()
	b.Wait()

	require.Len(t, replies, 1)
	assert.JSONEq(t, `{"id":null,"result":false}`, string(<-replies))
}

func TestBridge_LegacyDialogNoReplyOnShutdown(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	replied := false
	m := msg(EventDialog, `{"id":1,"message":"Delete?"}`)
	m.Reply = func([]byte) error {
		replied = true
		return nil
	}

	b.Handle(context.Background(), m)
	dialogs.Shutdown()
	b.Wait()

	assert.False(t, replied)
}

func TestBridge_LegacyDialogWithoutMessageIgnored(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	b.Handle(context.Background(), msg(EventDialog, `{"id":1,"label":"Empty"}`))

	_, ok := dialogs.Active()
	assert.False(t, ok)
}

func TestBridge_AllowList(t *testing.T) {
	b, _, notifier := newTestBridge(t)

	b.Handle(context.Background(), msg("other:notify", `{"message":"x"}`))
	assert.Empty(t, notifier.shown())

	b.SetAllow([]string{"bflex:notify"})
	assert.True(t, b.Allowed(EventNotify))
	assert.False(t, b.Allowed(EventNotification))

	b.Handle(context.Background(), msg(EventNotification, `{"message":"x"}`))
	assert.Empty(t, notifier.shown())

	b.Handle(context.Background(), msg(EventNotify, `{"message":"x"}`))
	assert.Len(t, notifier.shown(), 1)
}

func TestBridge_UnknownEventDropped(t *testing.T) {
	b, dialogs, notifier := newTestBridge(t)

	assert.NotPanics(t, func() {
		b.Handle(context.Background(), msg(EventDialogResult, `{"id":1,"result":true}`))
	})
	assert.Empty(t, notifier.shown())
	_, ok := dialogs.Active()
	assert.False(t, ok)
}

func TestBridge_LegacyDialogAfterWaitRefused(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)
	b.Wait()

	b.Handle(context.Background(), msg(EventDialog, `{"id":1,"message":"Delete?"}`))

	_, ok := dialogs.Active()
	assert.False(t, ok)
}

func TestBridge_WaitWhileEventsArrive(t *testing.T) {
	b, dialogs, _ := newTestBridge(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Handle(context.Background(), msg(EventDialog, fmt.Sprintf(`{"id":%d,"message":"Delete?"}`, i)))
		}()
	}

	dialogs.Shutdown()
	assert.NotPanics(t, b.Wait)
	wg.Wait()
	b.Wait()
}

func TestBridge_LogsCarryEventContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(logging.ContextHook{})
	b, _, _ := newTestBridge(t, WithLogger(logger))

	b.Handle(logging.WithRequestID(context.Background(), "req-1"), msg(EventNotify, `{"message":`))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bridge event rejected", entry["message"])
	assert.Equal(t, EventNotify, entry["event"])
	assert.Equal(t, "req-1", entry["request_id"])
}
