package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/eventbus"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/data/stores"
)

const (
	saveAttempts = 3
	saveBackoff  = 50 * time.Millisecond
	saveTimeout  = 5 * time.Second
)

type dialogSubscriber interface {
	Subscribe(fn dialog.Listener) func()
}

type notificationSubscriber interface {
	Subscribe(fn notify.Listener) func()
}

// Recorder forwards manager transitions to the event bus and archives them
// from the bus goroutine, so manager callers never wait on SQLite.
type Recorder struct {
	bus           *eventbus.EventBus
	notifications notify.Store
	dialogs       dialog.Store
	log           zerolog.Logger
}

// NewRecorder returns a recorder. Nil stores skip archiving for that kind.
func NewRecorder(bus *eventbus.EventBus, notifications notify.Store, dialogs dialog.Store) *Recorder {
	return &Recorder{
		bus:           bus,
		notifications: notifications,
		dialogs:       dialogs,
		log:           logging.Component("recorder"),
	}
}

// Observe publishes dialog.resolved and notification.closed for every
// matching manager event. It returns a func that stops both subscriptions.
func (r *Recorder) Observe(dialogs dialogSubscriber, notifications notificationSubscriber) func() {
	unsubDialogs := dialogs.Subscribe(func(ev dialog.Event) {
		if ev.Type == dialog.EventResolved {
			r.bus.PublishDialogResolved(eventbus.DialogResolvedPayload{
				Dialog:    ev.Dialog,
				Result:    ev.Result,
				Cancelled: ev.Cancelled,
			})
		}
	})
	unsubNotify := notifications.Subscribe(func(ev notify.Event) {
		if ev.Type == notify.EventClosed {
			r.bus.PublishNotificationClosed(eventbus.NotificationClosedPayload{Notification: ev.Notification})
		}
	})
	return func() {
		unsubDialogs()
		unsubNotify()
	}
}

// Register subscribes the archiving handlers to the bus.
func (r *Recorder) Register() {
	if r.notifications != nil {
		r.bus.SubscribeNotificationClosed(func(p eventbus.NotificationClosedPayload) {
			r.save("notification", p.Notification.ID, func(ctx context.Context) error {
				_, err := r.notifications.Save(ctx, notify.RecordOf(p.Notification))
				return err
			})
		})
	}
	if r.dialogs != nil {
		r.bus.SubscribeDialogResolved(func(p eventbus.DialogResolvedPayload) {
			r.save("dialog", p.Dialog.ID, func(ctx context.Context) error {
				_, err := r.dialogs.Save(ctx, dialog.OutcomeOf(p.Dialog, p.Result, p.Cancelled))
				return err
			})
		})
	}
}

// save retries while SQLite reports the database busy.
func (r *Recorder) save(kind string, id int64, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	var err error
	for attempt := range saveAttempts {
		if err = fn(ctx); err == nil {
			return
		}
		if !stores.IsBusyError(err) {
			break
		}
		r.log.Debug().Err(err).Int("attempt", attempt+1).Str("kind", kind).Msg("database busy, retrying")
		time.Sleep(saveBackoff * time.Duration(attempt+1))
	}
	r.log.Error().Err(err).Str("kind", kind).Int64("id", id).Msg("failed to archive")
}
