package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// DateUnitCalendarRequest selects a rate plan calendar window.
type DateUnitCalendarRequest struct {
	DateFrom   string `json:"dateFrom"`
	DateTo     string `json:"dateTo"`
	RatePlanID int64  `json:"ratePlan"`
}

// LoadDateUnitCalendar loads the date units of a rate plan.
func (c *Client) LoadDateUnitCalendar(ctx context.Context, req DateUnitCalendarRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "dateUnits/calendar", req, &out)
	return out, err
}

// LoadReservation loads a reservation by id.
func (c *Client) LoadReservation(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.get(ctx, "reservation/"+url.PathEscape(id), nil, &out)
	return out, err
}

// StatusChange moves a reservation to a new status.
type StatusChange struct {
	ID      int64  `json:"id"`
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// ChangeStatus updates the status of a reservation.
func (c *Client) ChangeStatus(ctx context.Context, change StatusChange) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "reservation/status/update", change, &out)
	return out, err
}

// FindPayment loads a payment by id.
func (c *Client) FindPayment(ctx context.Context, id int64) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.get(ctx, "payment/item/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// ResolvePenalty marks the penalty of a reservation as resolved.
func (c *Client) ResolvePenalty(ctx context.Context, id int64, comment string) (json.RawMessage, error) {
	var out json.RawMessage
	body := map[string]any{"id": id, "comment": comment}
	err := c.post(ctx, "reservation/penalty/resolve", body, &out)
	return out, err
}

// PaymentToken is a one-time URL that executes a payment operation.
type PaymentToken struct {
	Token string `json:"token"`
}

type tokenRequest struct {
	PaymentID      int64  `json:"paymentId"`
	ReservationSID string `json:"reservationSid"`
}

// CreateCaptureToken requests a token that captures an authorized payment.
func (c *Client) CreateCaptureToken(ctx context.Context, paymentID int64, reservationSID string) (PaymentToken, error) {
	var out PaymentToken
	err := c.post(ctx, "payment/token/capture", tokenRequest{paymentID, reservationSID}, &out)
	return out, err
}

// CreateCancelToken requests a token that cancels an authorized payment.
func (c *Client) CreateCancelToken(ctx context.Context, paymentID int64, reservationSID string) (PaymentToken, error) {
	var out PaymentToken
	err := c.post(ctx, "payment/token/cancel", tokenRequest{paymentID, reservationSID}, &out)
	return out, err
}

// ProcessPaymentToken follows a token URL. The response carries no
// envelope; success means the final response was 200.
func (c *Client) ProcessPaymentToken(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, token, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// SyncRequest names the child rate plan and accommodation type to sync
// from their parent.
type SyncRequest struct {
	RatePlanID          int64 `json:"ratePlan"`
	AccommodationTypeID int64 `json:"accommodationType"`
}

// SyncDateUnits copies the calendar of a parent rate plan. The plugin
// answers "ok" on success.
func (c *Client) SyncDateUnits(ctx context.Context, req SyncRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "dateUnits/sync", req, &out)
	return out, err
}

// DateUnitsUpdate sets Values on every date unit of one accommodation type
// between DateFrom and DateTo.
type DateUnitsUpdate struct {
	RatePlanID          int64          `json:"ratePlan"`
	AccommodationTypeID int64          `json:"accommodationType"`
	DateFrom            string         `json:"dateFrom"`
	DateTo              string         `json:"dateTo"`
	Values              map[string]any `json:"values"`
}

// UpdateDateUnits saves edited date units.
func (c *Client) UpdateDateUnits(ctx context.Context, req DateUnitsUpdate) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "dateUnits", req, &out)
	return out, err
}

// AccommodationType is one bookable unit type.
type AccommodationType struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// LoadAccommodationTypes lists the accommodation types.
func (c *Client) LoadAccommodationTypes(ctx context.Context) ([]AccommodationType, error) {
	var out []AccommodationType
	err := c.get(ctx, "accommodation-types", nil, &out)
	return out, err
}

// QuotaRequest selects a quota window. DateTo is inclusive.
type QuotaRequest struct {
	DateFrom            string
	DateTo              string
	AccommodationTypeID int64
}

// LoadQuotaCalendar loads availability quotas. The API treats dateTo as
// exclusive, so the inclusive DateTo is sent as the following day.
func (c *Client) LoadQuotaCalendar(ctx context.Context, req QuotaRequest) (json.RawMessage, error) {
	q := url.Values{}
	if req.DateFrom != "" {
		q.Set("dateFrom", req.DateFrom)
	}
	if req.DateTo != "" {
		to, err := time.Parse(DateLayout, req.DateTo)
		if err != nil {
			return nil, fmt.Errorf("parse dateTo: %w", err)
		}
		q.Set("dateTo", to.AddDate(0, 0, 1).Format(DateLayout))
	}
	if req.AccommodationTypeID != 0 {
		q.Set("accommodationTypeId", strconv.FormatInt(req.AccommodationTypeID, 10))
	}

	var out json.RawMessage
	err := c.get(ctx, "quota", q, &out)
	return out, err
}

// UpdateStopSale toggles the stop-sale flag for one date.
func (c *Client) UpdateStopSale(ctx context.Context, accommodationTypeID int64, date string, stopSale bool) (json.RawMessage, error) {
	var out json.RawMessage
	body := map[string]any{"accommodationTypeId": accommodationTypeID, "date": date, "stopSale": stopSale}
	err := c.post(ctx, "quota/stop-sale/update", body, &out)
	return out, err
}

// UpdateAvailable sets the number of available units for one date.
func (c *Client) UpdateAvailable(ctx context.Context, accommodationTypeID int64, date string, available int) (json.RawMessage, error) {
	var out json.RawMessage
	body := map[string]any{"accommodationTypeId": accommodationTypeID, "date": date, "available": available}
	err := c.post(ctx, "quota/available/update", body, &out)
	return out, err
}
