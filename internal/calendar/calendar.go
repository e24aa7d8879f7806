// Package calendar drives the rate plan calendar: loading date units,
// syncing a child rate plan with its parent and saving edits the plugin
// edition allows. User feedback goes through the dialog and notification
// queues.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/api"
	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/edition"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
)

// User-facing texts.
const (
	MsgLoadFailed    = "Failed to load calendar data"
	MsgSyncConfirm   = "This will sync all prices and restrictions with the parent rate plan. Current settings will be overwritten."
	MsgSyncTitle     = "Sync with parent rate plan"
	MsgSyncing       = "Syncing with parent rate plan..."
	MsgSyncSucceeded = "Successfully synced with parent rate plan"
	MsgSyncFailed    = "Failed to sync with parent rate plan"
	MsgRefreshing    = "Refreshing calendar data..."
	LabelSync        = "Sync"
	LabelCancel      = "Cancel"
	LabelRetry       = "Retry"
)

const (
	loadErrorDuration   = 5 * time.Second
	syncSuccessDuration = 5 * time.Second
	syncErrorDuration   = 7 * time.Second
	refreshDuration     = 2 * time.Second
)

var (
	// ErrStopped is returned once Wait has been called.
	ErrStopped = errors.New("calendar service stopped")
	// ErrSyncRejected is the failure of a sync the plugin did not answer "ok".
	ErrSyncRejected = errors.New("sync failed")
)

// RestrictedError lists the restrictions the edition may not edit.
type RestrictedError struct {
	Edition      edition.Edition
	Restrictions []edition.Restriction
}

func (e *RestrictedError) Error() string {
	return fmt.Sprintf("restrictions %v are not available in the %s edition", e.Restrictions, e.Edition)
}

// API is the part of the REST client the calendar uses.
type API interface {
	LoadDateUnitCalendar(ctx context.Context, req api.DateUnitCalendarRequest) (json.RawMessage, error)
	SyncDateUnits(ctx context.Context, req api.SyncRequest) (json.RawMessage, error)
	UpdateDateUnits(ctx context.Context, req api.DateUnitsUpdate) (json.RawMessage, error)
}

// Dialogs is the part of the dialog manager the calendar uses.
type Dialogs interface {
	Confirm(message string, opts dialog.Options) *dialog.Pending
}

// Notifier is the part of the notification manager the calendar uses.
type Notifier interface {
	Success(message string, opts notify.Options) int64
	Error(message string, opts notify.Options) int64
	Info(message string, opts notify.Options) int64
	Close(id int64)
}

// Params selects a calendar window.
type Params struct {
	DateFrom   string `json:"dateFrom"`
	DateTo     string `json:"dateTo"`
	RatePlanID int64  `json:"ratePlanId"`
}

func (p Params) complete() bool {
	return p.DateFrom != "" && p.DateTo != "" && p.RatePlanID != 0
}

// SyncTarget names the accommodation type of a child rate plan to sync.
type SyncTarget struct {
	RatePlanID          int64  `json:"ratePlanId"`
	AccommodationTypeID int64  `json:"accommodationTypeId"`
	AccommodationName   string `json:"accommodationName,omitempty"`
}

// Data is a loaded calendar. DateUnits is keyed by accommodation type id.
type Data struct {
	RatePlan           json.RawMessage            `json:"ratePlan"`
	AccommodationTypes []json.RawMessage          `json:"accommodationTypes"`
	DateUnits          map[string]json.RawMessage `json:"dateUnits"`
}

// Option configures a Service.
type Option func(*Service)

// WithEdition sets the plugin edition. The default is edition.Free.
func WithEdition(e edition.Edition) Option {
	return func(s *Service) { s.edition = e }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service is safe for concurrent use.
type Service struct {
	api      API
	dialogs  Dialogs
	notifier Notifier
	edition  edition.Edition
	log      zerolog.Logger

	mu      sync.Mutex
	data    Data
	loaded  bool
	loading bool
	syncing int

	bgMu    sync.Mutex
	stopped bool
	bg      sync.WaitGroup
}

// New returns a calendar service.
func New(client API, dialogs Dialogs, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		api:      client,
		dialogs:  dialogs,
		notifier: notifier,
		edition:  edition.Free,
		log:      logging.Component("calendar"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Edition returns the edition the service gates edits with.
func (s *Service) Edition() edition.Edition {
	return s.edition
}

// Load fetches the calendar for p. It reports false when p is incomplete or
// the request failed; a failure is also shown as an error toast.
func (s *Service) Load(ctx context.Context, p Params) (Data, bool) {
	if !p.complete() {
		return Data{}, false
	}

	s.setLoading(true)
	defer s.setLoading(false)

	raw, err := s.api.LoadDateUnitCalendar(ctx, api.DateUnitCalendarRequest{
		DateFrom:   p.DateFrom,
		DateTo:     p.DateTo,
		RatePlanID: p.RatePlanID,
	})
	var data Data
	if err == nil {
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		s.log.Error().Ctx(ctx).Err(err).Int64("rate_plan", p.RatePlanID).Msg("calendar load failed")
		s.notifier.Error(MsgLoadFailed, notify.Options{Duration: notify.Duration(loadErrorDuration)})
		return Data{}, false
	}

	s.mu.Lock()
	s.data = data
	s.loaded = true
	s.mu.Unlock()
	return data, true
}

// Reload announces the refresh and loads p again.
func (s *Service) Reload(ctx context.Context, p Params) (Data, bool) {
	s.notifier.Info(MsgRefreshing, notify.Options{Duration: notify.Duration(refreshDuration)})
	return s.Load(ctx, p)
}

// SyncWithParent asks for confirmation, then copies the parent calendar
// into t. It reports whether the sync ran and succeeded. A failed sync
// leaves an error toast whose Retry action starts the flow again.
func (s *Service) SyncWithParent(ctx context.Context, t SyncTarget) bool {
	confirmed, err := s.dialogs.Confirm(MsgSyncConfirm, dialog.Options{
		Title:       MsgSyncTitle,
		Variant:     dialog.VariantWarning,
		ConfirmText: LabelSync,
		CancelText:  LabelCancel,
	}).Confirmed(ctx)
	if err != nil || !confirmed {
		return false
	}

	s.mu.Lock()
	s.syncing++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.syncing--
		s.mu.Unlock()
	}()

	progress := s.notifier.Info(MsgSyncing, notify.Options{
		Duration: notify.Duration(0),
		Closable: notify.Bool(false),
	})
	defer s.notifier.Close(progress)

	res, err := s.api.SyncDateUnits(ctx, api.SyncRequest{
		RatePlanID:          t.RatePlanID,
		AccommodationTypeID: t.AccommodationTypeID,
	})
	if err == nil && !isOK(res) {
		err = ErrSyncRejected
	}
	if err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Int64("rate_plan", t.RatePlanID).
			Int64("accommodation_type", t.AccommodationTypeID).
			Msg("sync with parent failed")
		s.notifier.Error(MsgSyncFailed, notify.Options{
			Duration: notify.Duration(syncErrorDuration),
			Action: &notify.Action{
				Label:   LabelRetry,
				Handler: func() { _ = s.SyncInBackground(t) },
			},
		})
		return false
	}

	s.notifier.Success(MsgSyncSucceeded, notify.Options{
		Title:    t.AccommodationName,
		Duration: notify.Duration(syncSuccessDuration),
	})
	return true
}

// SyncInBackground runs SyncWithParent on its own goroutine. It fails with
// ErrStopped after Wait.
func (s *Service) SyncInBackground(t SyncTarget) error {
	return s.background(func() {
		ctx := logging.WithRequestID(context.Background(), "sync-"+strconv.FormatInt(t.AccommodationTypeID, 10))
		s.SyncWithParent(ctx, t)
	})
}

// ReloadInBackground runs Reload on its own goroutine.
func (s *Service) ReloadInBackground(p Params) error {
	return s.background(func() {
		s.Reload(context.Background(), p)
	})
}

func (s *Service) background(fn func()) error {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
	return nil
}

// Wait refuses new background work and blocks until running work is done.
// Syncs waiting on a confirmation return once the dialog manager shuts down.
func (s *Service) Wait() {
	s.bgMu.Lock()
	s.stopped = true
	s.bgMu.Unlock()
	s.bg.Wait()
}

// isOK reports whether a sync result is the string "ok".
func isOK(raw json.RawMessage) bool {
	var v string
	return json.Unmarshal(raw, &v) == nil && v == "ok"
}

// Save applies u after checking its restriction values against the
// edition. Values that are not restrictions, such as prices, always pass.
func (s *Service) Save(ctx context.Context, u api.DateUnitsUpdate) error {
	var denied []edition.Restriction
	for key := range u.Values {
		r := edition.Restriction(key)
		if isRestriction(r) && !s.edition.AllowsRestriction(r) {
			denied = append(denied, r)
		}
	}
	if len(denied) > 0 {
		slices.Sort(denied)
		return &RestrictedError{Edition: s.edition, Restrictions: denied}
	}

	if _, err := s.api.UpdateDateUnits(ctx, u); err != nil {
		return fmt.Errorf("update date units: %w", err)
	}
	return nil
}

func isRestriction(r edition.Restriction) bool {
	return edition.Pro.AllowsRestriction(r)
}

func (s *Service) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Loading reports whether a load is in flight.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Syncing reports whether a sync request is in flight.
func (s *Service) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing > 0
}

// Data returns the last loaded calendar.
func (s *Service) Data() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// HasData reports whether the last load returned any accommodation type.
func (s *Service) HasData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && len(s.data.AccommodationTypes) > 0
}

// AccommodationData returns the date units of one accommodation type, or
// an empty object.
func (s *Service) AccommodationData(accommodationTypeID int64) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if units, ok := s.data.DateUnits[strconv.FormatInt(accommodationTypeID, 10)]; ok {
		return units
	}
	return json.RawMessage("{}")
}
