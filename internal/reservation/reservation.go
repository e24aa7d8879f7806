// Package reservation loads reservations and payments for the admin
// drawers. Failures are routed through the API error handler, which shows
// them as danger toasts.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/colonyops/bflex/internal/api"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNothingToReload = errors.New("nothing to reload")
)

// API is the part of the REST client this package uses.
type API interface {
	LoadReservation(ctx context.Context, id string) (json.RawMessage, error)
	FindPayment(ctx context.Context, id int64) (json.RawMessage, error)
}

// Amount is a money value sent as a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse amount %s: %w", b, err)
	}
	*a = Amount(f)
	return nil
}

// Person is a guest or payment client.
type Person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins the first and last name. A nil person has no name.
func (p *Person) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Named is any API object shown by its name.
type Named struct {
	Name string `json:"name"`
}

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusConfirmed           Status = api.ReservationConfirmed
	StatusCancelled           Status = api.ReservationCancelled
	StatusWaitingConfirmation Status = api.ReservationWaitingConfirmation
)

// Reservation is the subset of a reservation the admin acts on.
type Reservation struct {
	ID          json.Number `json:"id"`
	Status      Status      `json:"status"`
	TotalAmount Amount      `json:"totalAmount"`

	Payment *struct {
		Amounts struct {
			Paid Amount `json:"paid"`
		} `json:"amounts"`
		Transactions []json.RawMessage `json:"transactions"`
		Status       struct {
			IsWaitingPayment bool `json:"isWaitingPayment"`
		} `json:"status"`
	} `json:"payment,omitempty"`

	PaymentType *struct {
		GatewayName string `json:"gatewayName"`
	} `json:"paymentType,omitempty"`

	Stay struct {
		CheckInDate  string `json:"checkInDate"`
		CheckOutDate string `json:"checkOutDate"`
	} `json:"stay"`

	Customer *Person `json:"customer,omitempty"`

	Accommodation struct {
		Type     Named `json:"type"`
		RatePlan Named `json:"ratePlan"`
	} `json:"accommodation"`
}

func (r Reservation) IsCancelled() bool { return r.Status == StatusCancelled }
func (r Reservation) IsConfirmed() bool { return r.Status == StatusConfirmed }

func (r Reservation) IsWaitingConfirmation() bool {
	return r.Status == StatusWaitingConfirmation
}

// IsPaid reports whether the paid amount covers the total.
func (r Reservation) IsPaid() bool {
	return r.Payment != nil && r.Payment.Amounts.Paid >= r.TotalAmount
}

func (r Reservation) HasPayments() bool {
	return r.Payment != nil && len(r.Payment.Transactions) > 0
}

func (r Reservation) NeedsPayment() bool {
	return r.Payment != nil && r.Payment.Status.IsWaitingPayment
}

func (r Reservation) CheckIn() string           { return r.Stay.CheckInDate }
func (r Reservation) CheckOut() string          { return r.Stay.CheckOutDate }
func (r Reservation) GuestName() string         { return r.Customer.FullName() }
func (r Reservation) AccommodationName() string { return r.Accommodation.Type.Name }
func (r Reservation) RatePlanName() string      { return r.Accommodation.RatePlan.Name }

func (r Reservation) gateway() string {
	if r.PaymentType == nil {
		return ""
	}
	return r.PaymentType.GatewayName
}

// Reservations holds the reservation shown in the drawer. It is safe for
// concurrent use.
type Reservations struct {
	api  API
	errs *api.ErrorHandler

	state  state[Reservation]
	totals json.RawMessage
}

// NewReservations returns an empty holder. errs may be nil.
func NewReservations(client API, errs *api.ErrorHandler) *Reservations {
	return &Reservations{api: client, errs: errs}
}

type reservationPayload struct {
	Reservations []Reservation  `json:"reservations"`
	Totals       json.RawMessage `json:"totals"`
}

// Load fetches reservation id and makes it current.
func (s *Reservations) Load(ctx context.Context, id string) (Reservation, error) {
	if id == "" {
		return Reservation{}, ErrIDRequired
	}

	s.state.begin()
	raw, err := call(ctx, s.errs, map[string]any{"operation": "loadReservation", "reservationId": id},
		"reservation-"+id,
		func(ctx context.Context) (json.RawMessage, error) { return s.api.LoadReservation(ctx, id) })
	if err != nil {
		s.state.fail(err)
		return Reservation{}, err
	}

	var payload reservationPayload
	if json.Unmarshal(raw, &payload) != nil || len(payload.Reservations) == 0 {
		s.state.idle()
		return Reservation{}, ErrInvalidResponse
	}

	r := payload.Reservations[0]
	s.state.set(r, func() { s.totals = payload.Totals })
	return r, nil
}

// Reload fetches the current reservation again.
func (s *Reservations) Reload(ctx context.Context) (Reservation, error) {
	r, ok := s.Current()
	if !ok || r.ID == "" {
		return Reservation{}, ErrNothingToReload
	}
	return s.Load(ctx, r.ID.String())
}

// Current returns the loaded reservation.
func (s *Reservations) Current() (Reservation, bool) {
	return s.state.get()
}

// Totals returns the totals sent with the current reservation.
func (s *Reservations) Totals() json.RawMessage {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.totals
}

// Loading reports whether a load is in flight.
func (s *Reservations) Loading() bool { return s.state.isLoading() }

// Err returns the failure of the last load, or nil.
func (s *Reservations) Err() error { return s.state.lastErr() }

// Clear forgets the current reservation and the last failure.
func (s *Reservations) Clear() {
	s.state.clear(func() { s.totals = nil })
}

// call runs fn through the error handler when one is set. Failures come
// back as *api.ErrorInfo.
func call[T any](ctx context.Context, errs *api.ErrorHandler, fields map[string]any, requestID string, fn func(context.Context) (T, error)) (T, error) {
	ctx = withRequestID(ctx, requestID)
	if errs == nil {
		return fn(ctx)
	}
	v, info := api.WithErrorHandling(ctx, errs, fields, fn)
	if info != nil {
		return v, info
	}
	return v, nil
}
