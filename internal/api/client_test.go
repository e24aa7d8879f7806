package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	query  string
	nonce  string
	body   map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()

	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.nonce = r.Header.Get("X-WP-Nonce")
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/wp-json", Nonce: "abc123"}, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return c, got
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestClient_SuccessEnvelope(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"status":"success","result":[{"id":7,"title":"Suite"}]}`)

	types, err := c.LoadAccommodationTypes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []AccommodationType{{ID: 7, Title: "Suite"}}, types)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/wp-json/bflex/v1/accommodation-types", got.path)
	assert.Equal(t, "abc123", got.nonce)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnprocessableEntity,
		`{"status":"error","code":"invalid_status","message":"Status change not allowed","data":{"field":"status"}}`)

	_, err := c.ChangeStatus(context.Background(), StatusChange{ID: 1, Status: ReservationConfirmed})

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, 422, respErr.Status)
	assert.Equal(t, "invalid_status", respErr.Code)
	assert.Equal(t, "Status change not allowed", respErr.Message)
	assert.JSONEq(t, `{"field":"status"}`, string(respErr.Data))
}

func TestClient_ErrorDefaults(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty error body", http.StatusBadRequest, `{}`},
		{"status not success", http.StatusOK, `{"status":"failure"}`},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.status, tt.body)

			_, err := c.LoadReservation(context.Background(), "42")

			var respErr *ResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Equal(t, tt.status, respErr.Status)
			assert.Equal(t, "api_error", respErr.Code)
			assert.Equal(t, "Unknown API error", respErr.Message)
		})
	}
}

func TestClient_PostBodies(t *testing.T) {
	ok := `{"status":"success","result":{"token":"https://pay.example/t/1"}}`

	tests := []struct {
		name string
		call func(c *Client) error
		path string
		body map[string]any
	}{
		{
			name: "resolve penalty",
			call: func(c *Client) error {
				_, err := c.ResolvePenalty(context.Background(), 5, "waived")
				return err
			},
			path: "/wp-json/bflex/v1/reservation/penalty/resolve",
			body: map[string]any{"id": float64(5), "comment": "waived"},
		},
		{
			name: "capture token",
			call: func(c *Client) error {
				tok, err := c.CreateCaptureToken(context.Background(), 9, "R-1")
				if err == nil && tok.Token != "https://pay.example/t/1" {
					return errors.New("unexpected token")
				}
				return err
			},
			path: "/wp-json/bflex/v1/payment/token/capture",
			body: map[string]any{"paymentId": float64(9), "reservationSid": "R-1"},
		},
		{
			name: "cancel token",
			call: func(c *Client) error {
				_, err := c.CreateCancelToken(context.Background(), 9, "R-1")
				return err
			},
			path: "/wp-json/bflex/v1/payment/token/cancel",
			body: map[string]any{"paymentId": float64(9), "reservationSid": "R-1"},
		},
		{
			name: "stop sale",
			call: func(c *Client) error {
				_, err := c.UpdateStopSale(context.Background(), 3, "2025-06-01", true)
				return err
			},
			path: "/wp-json/bflex/v1/quota/stop-sale/update",
			body: map[string]any{"accommodationTypeId": float64(3), "date": "2025-06-01", "stopSale": true},
		},
		{
			name: "available",
			call: func(c *Client) error {
				_, err := c.UpdateAvailable(context.Background(), 3, "2025-06-01", 4)
				return err
			},
			path: "/wp-json/bflex/v1/quota/available/update",
			body: map[string]any{"accommodationTypeId": float64(3), "date": "2025-06-01", "available": float64(4)},
		},
		{
			name: "date unit calendar",
			call: func(c *Client) error {
				_, err := c.LoadDateUnitCalendar(context.Background(), DateUnitCalendarRequest{DateFrom: "2025-06-01", DateTo: "2025-06-30", RatePlanID: 2})
				return err
			},
			path: "/wp-json/bflex/v1/dateUnits/calendar",
			body: map[string]any{"dateFrom": "2025-06-01", "dateTo": "2025-06-30", "ratePlan": float64(2)},
		},
		{
			name: "sync date units",
			call: func(c *Client) error {
				_, err := c.SyncDateUnits(context.Background(), SyncRequest{RatePlanID: 2, AccommodationTypeID: 5})
				return err
			},
			path: "/wp-json/bflex/v1/dateUnits/sync",
			body: map[string]any{"ratePlan": float64(2), "accommodationType": float64(5)},
		},
		{
			name: "update date units",
			call: func(c *Client) error {
				_, err := c.UpdateDateUnits(context.Background(), DateUnitsUpdate{
					RatePlanID:          2,
					AccommodationTypeID: 5,
					DateFrom:            "2025-06-01",
					DateTo:              "2025-06-02",
					Values:              map[string]any{"stopSale": true},
				})
				return err
			},
			path: "/wp-json/bflex/v1/dateUnits",
			body: map[string]any{
				"ratePlan":          float64(2),
				"accommodationType": float64(5),
				"dateFrom":          "2025-06-01",
				"dateTo":            "2025-06-02",
				"values":            map[string]any{"stopSale": true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := newTestClient(t, http.StatusOK, ok)

			require.NoError(t, tt.call(c))
			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, tt.body, got.body)
		})
	}
}

func TestClient_GetPaths(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"status":"success","result":{"id":11}}`)

	p, err := c.FindPayment(context.Background(), 11)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":11}`, string(p))
	assert.Equal(t, "/wp-json/bflex/v1/payment/item/11", got.path)
}

func TestClient_LoadQuotaCalendar_SendsExclusiveDateTo(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"status":"success","result":[]}`)

	_, err := c.LoadQuotaCalendar(context.Background(), QuotaRequest{
		DateFrom:            "2025-02-01",
		DateTo:              "2025-02-28",
		AccommodationTypeID: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, "/wp-json/bflex/v1/quota", got.path)
	assert.Equal(t, "accommodationTypeId=4&dateFrom=2025-02-01&dateTo=2025-03-01", got.query)
}

func TestClient_LoadQuotaCalendar_RejectsBadDate(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"status":"success"}`)

	_, err := c.LoadQuotaCalendar(context.Background(), QuotaRequest{DateTo: "28/02/2025"})
	assert.Error(t, err)
}

func TestClient_QueryStyleRoot(t *testing.T) {
	c, err := New(Config{BaseURL: "https://example.com/?rest_route=/"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/?rest_route=/bflex/v1/quota&dateFrom=2025-01-01",
		c.endpoint("quota", map[string][]string{"dateFrom": {"2025-01-01"}}))
}

func TestClient_ProcessPaymentToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/expired" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ok, err := c.ProcessPaymentToken(context.Background(), srv.URL+"/t/1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ProcessPaymentToken(context.Background(), srv.URL+"/expired")
	require.NoError(t, err)
	assert.False(t, ok)
}
