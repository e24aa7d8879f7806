package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/colonyops/bflex/internal/api"
)

// DefaultCurrency is used for amounts sent without a currency.
const DefaultCurrency = "EUR"

// PaymentStatus is the state of a payment at its gateway.
type PaymentStatus string

const (
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPending           PaymentStatus = "PENDING"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
)

// Money is an amount in a currency.
type Money struct {
	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`
}

var printer = message.NewPrinter(language.English)

// Format renders m as "EUR 1,234.50". Unknown currency codes fall back to
// plain two-decimal formatting.
func (m Money) Format() string {
	code := m.Currency
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", m.Currency, float64(m.Amount))
	}
	return unit.String() + " " + printer.Sprintf("%v", number.Decimal(float64(m.Amount), number.Scale(2)))
}

// Allocation ties part of a payment to a reservation.
type Allocation struct {
	Reservation *Reservation `json:"reservation,omitempty"`
}

// Payment is a gateway payment with the reservations it pays for.
type Payment struct {
	ID          json.Number     `json:"id"`
	Status      PaymentStatus   `json:"status"`
	GatewayName string          `json:"gatewayName"`
	Amount      *Money          `json:"amount,omitempty"`
	Client      *Person         `json:"client,omitempty"`
	Allocations []Allocation    `json:"allocations"`
	Details     json.RawMessage `json:"details,omitempty"`
}

func (p Payment) IsPaid() bool              { return p.Status == PaymentPaid }
func (p Payment) IsPending() bool           { return p.Status == PaymentPending }
func (p Payment) IsFailed() bool            { return p.Status == PaymentFailed }
func (p Payment) IsRefunded() bool          { return p.Status == PaymentRefunded }
func (p Payment) IsPartiallyRefunded() bool { return p.Status == PaymentPartiallyRefunded }
func (p Payment) IsCancelled() bool         { return p.Status == PaymentCancelled }
func (p Payment) HasAllocations() bool      { return len(p.Allocations) > 0 }

// RelatedReservation returns the allocated reservation paid through the
// same gateway as p.
func (p Payment) RelatedReservation() (Reservation, bool) {
	for _, a := range p.Allocations {
		if a.Reservation != nil && a.Reservation.gateway() == p.GatewayName {
			return *a.Reservation, true
		}
	}
	return Reservation{}, false
}

// FormattedAmount returns the formatted amount, or "" without one.
func (p Payment) FormattedAmount() string {
	if p.Amount == nil {
		return ""
	}
	return p.Amount.Format()
}

func (p Payment) ClientName() string { return p.Client.FullName() }

func (p Payment) ClientEmail() string {
	if p.Client == nil {
		return ""
	}
	return p.Client.Email
}

func (p Payment) ClientPhone() string {
	if p.Client == nil {
		return ""
	}
	return p.Client.Phone
}

// HasGatewayDetails reports whether the gateway sent a non-empty details
// object or array.
func (p Payment) HasGatewayDetails() bool {
	d := bytes.TrimSpace(p.Details)
	switch {
	case len(d) == 0, bytes.Equal(d, []byte("null")):
		return false
	case d[0] == '[':
		var items []json.RawMessage
		return json.Unmarshal(d, &items) == nil && len(items) > 0
	case d[0] == '{':
		var fields map[string]json.RawMessage
		return json.Unmarshal(d, &fields) == nil && len(fields) > 0
	}
	return false
}

// Payments holds the payment shown in the drawer. It is safe for
// concurrent use.
type Payments struct {
	api   API
	errs  *api.ErrorHandler
	state state[Payment]
}

// NewPayments returns an empty holder. errs may be nil.
func NewPayments(client API, errs *api.ErrorHandler) *Payments {
	return &Payments{api: client, errs: errs}
}

// Load fetches payment id and makes it current.
func (s *Payments) Load(ctx context.Context, id int64) (Payment, error) {
	if id == 0 {
		return Payment{}, ErrIDRequired
	}

	key := strconv.FormatInt(id, 10)
	s.state.begin()
	raw, err := call(ctx, s.errs, map[string]any{"operation": "findPayment", "paymentId": id},
		"payment-"+key,
		func(ctx context.Context) (json.RawMessage, error) { return s.api.FindPayment(ctx, id) })
	if err != nil {
		s.state.fail(err)
		return Payment{}, err
	}

	var payload struct {
		Payment *Payment `json:"payment"`
	}
	if json.Unmarshal(raw, &payload) != nil || payload.Payment == nil {
		s.state.idle()
		return Payment{}, ErrInvalidResponse
	}

	s.state.set(*payload.Payment, nil)
	return *payload.Payment, nil
}

// Reload fetches the current payment again.
func (s *Payments) Reload(ctx context.Context) (Payment, error) {
	p, ok := s.Current()
	if !ok {
		return Payment{}, ErrNothingToReload
	}
	id, err := strconv.ParseInt(strings.TrimSpace(p.ID.String()), 10, 64)
	if err != nil || id == 0 {
		return Payment{}, ErrNothingToReload
	}
	return s.Load(ctx, id)
}

// Current returns the loaded payment.
func (s *Payments) Current() (Payment, bool) { return s.state.get() }

// Loading reports whether a load is in flight.
func (s *Payments) Loading() bool { return s.state.isLoading() }

// Err returns the failure of the last load, or nil.
func (s *Payments) Err() error { return s.state.lastErr() }

// Clear forgets the current payment and the last failure.
func (s *Payments) Clear() { s.state.clear(nil) }
