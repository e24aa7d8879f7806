package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/app"
	"github.com/colonyops/bflex/internal/core/config"
	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/data/db"
	"github.com/colonyops/bflex/internal/data/stores"
)

func testFlags(t *testing.T) *Flags {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	database, err := db.Open(cfg.DataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return &Flags{Config: &cfg, DataDir: cfg.DataDir, DB: database}
}

// testApp returns a root command that records output and never exits the
// process.
func testApp(buf *bytes.Buffer) *cli.Command {
	return &cli.Command{
		Name:           "bflex",
		Writer:         buf,
		ErrWriter:      buf,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func TestNotifyCmd_Detail(t *testing.T) {
	t.Run("defaults left to the manager", func(t *testing.T) {
		cmd := &NotifyCmd{}
		d, err := cmd.detail("  Reservation saved ", false)
		require.NoError(t, err)
		assert.Equal(t, "Reservation saved", d.Message)
		assert.Nil(t, d.Duration)

		body, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"message":"Reservation saved"}`, string(body))
	})

	t.Run("duration in milliseconds", func(t *testing.T) {
		cmd := &NotifyCmd{kind: "warning", title: "Quota", duration: 1500 * time.Millisecond, position: "top-right"}
		d, err := cmd.detail("Only 3 rooms left", true)
		require.NoError(t, err)
		require.NotNil(t, d.Duration)
		assert.Equal(t, int64(1500), *d.Duration)
		assert.Equal(t, notify.TypeWarning, d.Type)
		assert.Equal(t, notify.PositionTopRight, d.Position)
	})

	t.Run("sticky", func(t *testing.T) {
		cmd := &NotifyCmd{sticky: true, duration: time.Second}
		d, err := cmd.detail("Payment pending", true)
		require.NoError(t, err)
		require.NotNil(t, d.Duration)
		assert.Zero(t, *d.Duration)
	})

	errTests := []struct {
		name        string
		cmd         NotifyCmd
		message     string
		durationSet bool
		want        string
	}{
		{"empty message", NotifyCmd{}, " ", false, "message is required"},
		{"bad type", NotifyCmd{kind: "error"}, "x", false, `invalid type "error"`},
		{"bad position", NotifyCmd{position: "middle"}, "x", false, `invalid position "middle"`},
		{"zero duration", NotifyCmd{}, "x", true, "duration must be positive"},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cmd.detail(tt.message, tt.durationSet)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNotifyCmd_RequiresNATS(t *testing.T) {
	var buf bytes.Buffer
	flags := testFlags(t)

	root := NewNotifyCmd(flags).Register(testApp(&buf))
	err := root.Run(context.Background(), []string{"bflex", "notify", "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge.nats.url is not configured")
}

func TestDialogCmd_Request(t *testing.T) {
	cmd := &DialogCmd{kind: "alert", title: "Sync"}
	req, err := cmd.request("Sync finished")
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, dialog.KindAlert, req.Kind)
	require.NotNil(t, req.ShowCancel)
	assert.False(t, *req.ShowCancel)

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, req.ID, wire["id"])
	assert.Equal(t, "Sync finished", wire["message"])
	assert.Equal(t, "alert", wire["type"])
	assert.Equal(t, "Sync", wire["title"])

	_, err = (&DialogCmd{kind: "custom"}).request("x")
	assert.ErrorContains(t, err, `invalid type "custom"`)
	_, err = (&DialogCmd{kind: "confirm", variant: "loud"}).request("x")
	assert.ErrorContains(t, err, `invalid variant "loud"`)
	_, err = (&DialogCmd{kind: "confirm"}).request("")
	assert.ErrorContains(t, err, "message is required")
}

func TestDecodeResult(t *testing.T) {
	got, err := decodeResult([]byte(`{"id":"abc","result":"Anna"}`), "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `"Anna"`, string(got))

	got, err = decodeResult([]byte(`{"id":"abc"}`), "abc")
	require.NoError(t, err)
	assert.Equal(t, "null", string(got))

	_, err = decodeResult([]byte(`{"id":"other","result":true}`), "abc")
	assert.Error(t, err)

	_, err = decodeResult([]byte(`nope`), "abc")
	assert.Error(t, err)
}

func seedHistory(t *testing.T, database *db.DB) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := stores.NewNotifyStore(database).Save(ctx, notify.Record{
		NotificationID: 1,
		Type:           notify.TypeSuccess,
		Message:        "Reservation saved",
		Position:       notify.PositionBottomLeft,
		CreatedAt:      at,
		ClosedAt:       at.Add(time.Second),
	})
	require.NoError(t, err)

	_, err = stores.NewDialogStore(database).Save(ctx, dialog.Outcome{
		DialogID:   1,
		Kind:       dialog.KindConfirm,
		Variant:    dialog.VariantDanger,
		Title:      "Payment",
		Message:    "Capture payment?",
		Result:     json.RawMessage("true"),
		CreatedAt:  at,
		ResolvedAt: at.Add(time.Minute),
	})
	require.NoError(t, err)
}

func TestHistoryCmd(t *testing.T) {
	t.Run("json newest first", func(t *testing.T) {
		var buf bytes.Buffer
		flags := testFlags(t)
		seedHistory(t, flags.DB)

		root := NewHistoryCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "history", "--json"}))

		var entries []app.Entry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, app.EntryDialog, entries[0].Kind)
		assert.Equal(t, app.EntryNotification, entries[1].Kind)
	})

	t.Run("filter and limit", func(t *testing.T) {
		var buf bytes.Buffer
		flags := testFlags(t)
		seedHistory(t, flags.DB)

		root := NewHistoryCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "history", "--filter", "reservation"}))

		out := buf.String()
		assert.Contains(t, out, "Reservation saved")
		assert.NotContains(t, out, "Capture payment?")

		buf.Reset()
		root = NewHistoryCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "history", "--limit", "1"}))
		assert.Contains(t, buf.String(), "Capture payment?")
		assert.NotContains(t, buf.String(), "Reservation saved")
	})

	t.Run("clear", func(t *testing.T) {
		var buf bytes.Buffer
		flags := testFlags(t)
		seedHistory(t, flags.DB)

		root := NewHistoryCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "history", "--clear"}))
		assert.Contains(t, buf.String(), "history cleared")

		buf.Reset()
		root = NewHistoryCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "history"}))
		assert.Contains(t, buf.String(), "No history entries.")
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "-", outcome(app.Entry{Kind: app.EntryNotification}))
	assert.Equal(t, "cancelled", outcome(app.Entry{Kind: app.EntryDialog, Cancelled: true}))
	assert.Equal(t, "null", outcome(app.Entry{Kind: app.EntryDialog}))
	assert.Equal(t, `"Ann"`, outcome(app.Entry{Kind: app.EntryDialog, Result: json.RawMessage(`"Ann"`)}))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n  b\tc"))
	long := oneLine(string(bytes.Repeat([]byte("é"), 80)))
	assert.Len(t, []rune(long), 60)
}

func TestConfigValidateCmd(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var buf bytes.Buffer
		flags := testFlags(t)

		root := NewConfigValidateCmd(flags).Register(testApp(&buf))
		require.NoError(t, root.Run(context.Background(), []string{"bflex", "config", "validate"}))
		assert.Contains(t, buf.String(), "Configuration is valid")
		assert.Contains(t, buf.String(), "warning: api:")
	})

	t.Run("invalid json", func(t *testing.T) {
		var buf bytes.Buffer
		flags := testFlags(t)
		flags.Config.Dialogs.Variant = "loud"

		root := NewConfigValidateCmd(flags).Register(testApp(&buf))
		err := root.Run(context.Background(), []string{"bflex", "config", "validate", "--format", "json"})
		require.Error(t, err)

		var report validationReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.False(t, report.Valid)
		assert.Equal(t, []string{"dialogs.variant"}, report.Fields)
	})
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	assert.Equal(t, "/tmp/cfg/bflex/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/tmp/data/bflex", DefaultDataDir())
}

func pluginServer(t *testing.T, flags *Flags, routes map[string]string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for suffix, body := range routes {
			if strings.HasSuffix(r.URL.Path, suffix) {
				_, _ = io.WriteString(w, body)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	flags.Config.API.BaseURL = srv.URL + "/wp-json"
}

func TestReservationCmd_Text(t *testing.T) {
	var buf bytes.Buffer
	flags := testFlags(t)
	pluginServer(t, flags, map[string]string{
		"/reservation/42": `{"status":"success","result":{"reservations":[{
			"id":42,"status":"CONFIRMED","totalAmount":"250.00",
			"payment":{"amounts":{"paid":250},"status":{"isWaitingPayment":false}},
			"stay":{"checkInDate":"2025-07-01","checkOutDate":"2025-07-04"},
			"customer":{"firstName":"Ana","lastName":"Silva"},
			"accommodation":{"type":{"name":"Suite"},"ratePlan":{"name":"Flexible"}}
		}]}}`,
	})

	root := NewReservationCmd(flags).Register(testApp(&buf))
	require.NoError(t, root.Run(context.Background(), []string{"bflex", "reservation", "42"}))

	out := buf.String()
	assert.Contains(t, out, "CONFIRMED, paid")
	assert.Contains(t, out, "Ana Silva")
	assert.Contains(t, out, "2025-07-01 to 2025-07-04")
	assert.Contains(t, out, "Suite")
	assert.Contains(t, out, "250.00")
}

func TestReservationCmd_JSON(t *testing.T) {
	var buf bytes.Buffer
	flags := testFlags(t)
	pluginServer(t, flags, map[string]string{
		"/reservation/7": `{"status":"success","result":{"reservations":[{"id":7,"status":"CANCELLED"}]}}`,
	})

	root := NewReservationCmd(flags).Register(testApp(&buf))
	require.NoError(t, root.Run(context.Background(), []string{"bflex", "reservation", "--json", "7"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "CANCELLED", got["status"])
}

func TestReservationCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		withAPI bool
		want    string
	}{
		{name: "missing id", args: []string{"reservation"}, want: "reservation id is required"},
		{name: "bad payment id", args: []string{"payment", "abc"}, want: "payment id must be a positive number"},
		{name: "no api", args: []string{"reservation", "42"}, want: "api.base_url is not configured"},
		{name: "open needs nats", args: []string{"payment", "--open", "9"}, want: "bridge.nats.url is not configured"},
		{name: "not found", args: []string{"reservation", "1"}, withAPI: true, want: "status 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			flags := testFlags(t)
			if tt.withAPI {
				pluginServer(t, flags, nil)
			}

			root := NewReservationCmd(flags).Register(testApp(&buf))
			err := root.Run(context.Background(), append([]string{"bflex"}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPaymentCmd_Text(t *testing.T) {
	var buf bytes.Buffer
	flags := testFlags(t)
	pluginServer(t, flags, map[string]string{
		"/payment/item/9": `{"status":"success","result":{"payment":{
			"id":9,"status":"PAID","gatewayName":"stripe",
			"amount":{"amount":"1234.5","currency":"EUR"},
			"client":{"firstName":"Ana","lastName":"Silva"},
			"allocations":[{"reservation":{"id":2,"paymentType":{"gatewayName":"stripe"}}}]
		}}}`,
	})

	root := NewReservationCmd(flags).Register(testApp(&buf))
	require.NoError(t, root.Run(context.Background(), []string{"bflex", "payment", "9"}))

	out := buf.String()
	assert.Contains(t, out, "PAID")
	assert.Contains(t, out, "EUR 1,234.50")
	assert.Contains(t, out, "stripe")
	assert.Contains(t, out, "Ana Silva")
}

func TestCalendarCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "sync needs ids", args: []string{"calendar", "sync", "--rate-plan", "3"}, want: "--rate-plan and --accommodation-type are required"},
		{name: "reload needs window", args: []string{"calendar", "reload", "--rate-plan", "3"}, want: "--rate-plan, --from and --to are required"},
		{name: "sync needs nats", args: []string{"calendar", "sync", "-r", "3", "-a", "5"}, want: "bridge.nats.url is not configured"},
		{name: "reload needs nats", args: []string{"calendar", "reload", "-r", "3", "--from", "2025-06-01", "--to", "2025-06-30"}, want: "bridge.nats.url is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			root := NewCalendarCmd(testFlags(t)).Register(testApp(&buf))
			err := root.Run(context.Background(), append([]string{"bflex"}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
