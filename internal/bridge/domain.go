package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colonyops/bflex/internal/calendar"
	"github.com/colonyops/bflex/internal/core/drawer"
	"github.com/colonyops/bflex/internal/reservation"
)

// Drawer and domain events understood by the bridge.
const (
	EventDrawer          = "bflex:drawer"
	EventCalendarSync    = "bflex:calendar:sync"
	EventCalendarReload  = "bflex:calendar:reload"
	EventReservationOpen = "bflex:reservation:open"
	EventPaymentOpen     = "bflex:payment:open"
)

// Components opened by the reservation and payment events.
const (
	ReservationDrawer = "ReservationDrawer"
	PaymentDrawer     = "PaymentDrawer"
)

// Drawer actions carried by bflex:drawer.
const (
	DrawerOpen    = "open"
	DrawerReplace = "replace"
	DrawerBack    = "back"
	DrawerClose   = "close"
)

// Drawers is the part of the drawer navigator the bridge drives.
type Drawers interface {
	NavigateTo(cfg drawer.Config) drawer.Drawer
	Replace(cfg drawer.Config) drawer.Drawer
	NavigateBack() bool
	CloseAll()
}

// Calendar is the part of the calendar service the bridge drives.
type Calendar interface {
	SyncInBackground(t calendar.SyncTarget) error
	ReloadInBackground(p calendar.Params) error
}

// Reservations loads the reservation a drawer shows.
type Reservations interface {
	Load(ctx context.Context, id string) (reservation.Reservation, error)
}

// Payments loads the payment a drawer shows.
type Payments interface {
	Load(ctx context.Context, id int64) (reservation.Payment, error)
}

// WithDrawer enables bflex:drawer and lets the open events show drawers.
func WithDrawer(d Drawers) Option {
	return func(b *Bridge) { b.drawers = d }
}

// WithCalendar enables the calendar events.
func WithCalendar(c Calendar) Option {
	return func(b *Bridge) { b.calendar = c }
}

// WithReservations enables bflex:reservation:open.
func WithReservations(r Reservations) Option {
	return func(b *Bridge) { b.reservations = r }
}

// WithPayments enables bflex:payment:open.
func WithPayments(p Payments) Option {
	return func(b *Bridge) { b.payments = p }
}

var errIDRequired = errors.New("id is required")

func notConfigured(event, what string) error {
	return fmt.Errorf("%s needs %s, none configured", event, what)
}

// DrawerDetail is the wire form of bflex:drawer. Action defaults to open.
type DrawerDetail struct {
	Action     string         `json:"action,omitempty"`
	Component  string         `json:"component,omitempty"`
	Props      map[string]any `json:"props,omitempty"`
	Key        string         `json:"key,omitempty"`
	AddToStack *bool          `json:"addToStack,omitempty"`
}

func (d DrawerDetail) config() drawer.Config {
	return drawer.Config{
		Component:  d.Component,
		Props:      d.Props,
		Key:        d.Key,
		AddToStack: d.AddToStack,
	}
}

func (b *Bridge) handleDrawer(_ context.Context, msg Message) error {
	if b.drawers == nil {
		return notConfigured(msg.Name, "a drawer")
	}
	var d DrawerDetail
	if err := decode(msg, &d); err != nil {
		return err
	}

	switch d.Action {
	case "", DrawerOpen:
		if d.Component == "" {
			return errors.New("drawer component is required")
		}
		b.drawers.NavigateTo(d.config())
	case DrawerReplace:
		if d.Component == "" {
			return errors.New("drawer component is required")
		}
		b.drawers.Replace(d.config())
	case DrawerBack:
		b.drawers.NavigateBack()
	case DrawerClose:
		b.drawers.CloseAll()
	default:
		return fmt.Errorf("unknown drawer action %q", d.Action)
	}
	return nil
}

func (b *Bridge) handleCalendarSync(_ context.Context, msg Message) error {
	if b.calendar == nil {
		return notConfigured(msg.Name, "the calendar")
	}
	var t calendar.SyncTarget
	if err := decode(msg, &t); err != nil {
		return err
	}
	if t.RatePlanID == 0 || t.AccommodationTypeID == 0 {
		return errors.New("ratePlanId and accommodationTypeId are required")
	}
	return b.calendar.SyncInBackground(t)
}

func (b *Bridge) handleCalendarReload(_ context.Context, msg Message) error {
	if b.calendar == nil {
		return notConfigured(msg.Name, "the calendar")
	}
	var p calendar.Params
	if err := decode(msg, &p); err != nil {
		return err
	}
	return b.calendar.ReloadInBackground(p)
}

// openDetail names the object to open. The id may be a number or a string.
type openDetail struct {
	ID json.Number `json:"id"`
}

func (b *Bridge) handleReservationOpen(ctx context.Context, msg Message) error {
	if b.reservations == nil || b.drawers == nil {
		return notConfigured(msg.Name, "reservations and a drawer")
	}
	var d openDetail
	if err := decode(msg, &d); err != nil {
		return err
	}
	id := d.ID.String()
	if id == "" {
		return errIDRequired
	}

	bg := context.WithoutCancel(ctx)
	return b.spawn(func() {
		r, err := b.reservations.Load(bg, id)
		if err != nil {
			b.log.Warn().Ctx(bg).Err(err).Str("reservation_id", id).Msg("reservation not opened")
			return
		}
		b.drawers.NavigateTo(drawer.Config{
			Component: ReservationDrawer,
			Key:       "reservation-" + id,
			Props:     map[string]any{"reservationId": id, "reservation": r},
		})
	})
}

func (b *Bridge) handlePaymentOpen(ctx context.Context, msg Message) error {
	if b.payments == nil || b.drawers == nil {
		return notConfigured(msg.Name, "payments and a drawer")
	}
	var d openDetail
	if err := decode(msg, &d); err != nil {
		return err
	}
	id, err := d.ID.Int64()
	if err != nil || id == 0 {
		return errIDRequired
	}

	bg := context.WithoutCancel(ctx)
	return b.spawn(func() {
		p, err := b.payments.Load(bg, id)
		if err != nil {
			b.log.Warn().Ctx(bg).Err(err).Int64("payment_id", id).Msg("payment not opened")
			return
		}
		b.drawers.NavigateTo(drawer.Config{
			Component: PaymentDrawer,
			Key:       fmt.Sprintf("payment-%d", id),
			Props:     map[string]any{"paymentId": id, "payment": p},
		})
	})
}
