// Package app wires the dialog and notification managers to their
// collaborators: the event bus, the legacy bridge, history storage, the
// REST client with the domain services built on it, and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/api"
	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/calendar"
	"github.com/colonyops/bflex/internal/core/clock"
	"github.com/colonyops/bflex/internal/core/config"
	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/drawer"
	"github.com/colonyops/bflex/internal/core/eventbus"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/data/db"
	"github.com/colonyops/bflex/internal/data/stores"
	"github.com/colonyops/bflex/internal/metrics"
	"github.com/colonyops/bflex/internal/reservation"
)

// busBufferSize bounds the in-process event bus queue.
const busBufferSize = 256

// Deps are the optional external resources of an App. Nil fields disable
// the feature that needs them.
type Deps struct {
	DB         *db.DB
	NATS       *nats.Conn
	Clock      clock.Clock
	HTTPClient *http.Client
}

// App is the central entry point. Commands and the TUI consume App instead
// of cherry-picking raw dependencies.
type App struct {
	Config        *config.Config
	Dialogs       *dialog.Manager
	Notifications *notify.Manager
	Drawer        *drawer.Navigator
	Bus           *eventbus.EventBus
	Bridge        *bridge.Bridge
	Errors        *api.ErrorHandler
	Metrics       *metrics.Collector
	History       *History

	// API and the services built on it are nil when no base URL is
	// configured.
	API          *api.Client
	Calendar     *calendar.Service
	Reservations *reservation.Reservations
	Payments     *reservation.Payments

	log     zerolog.Logger
	sources []bridge.Source
	unsubs  []func()

	mu       sync.Mutex
	started  bool
	closed   bool
	stopWork context.CancelFunc
	stopBus  context.CancelFunc
	busDone  chan struct{}
	wg       sync.WaitGroup
}

// New constructs an App from cfg. Nothing runs until Start.
func New(cfg *config.Config, deps Deps) (*App, error) {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	a := &App{
		Config: cfg,
		Bus:    eventbus.New(busBufferSize),
		log:    logging.Component("app"),
	}
	eventbus.RegisterDebugLogger(a.Bus, logging.Component("eventbus"))

	a.Dialogs = dialog.New(dialog.Config{
		Defaults:        cfg.Dialogs.Defaults,
		TransitionDelay: cfg.Dialogs.TransitionDelay,
	}, dialog.WithClock(clk))
	a.Notifications = notify.New(notify.Config{
		Defaults:     cfg.Notifications.Defaults,
		RemovalDelay: cfg.Notifications.RemovalDelay,
	}, notify.WithClock(clk))
	a.Drawer = drawer.New(drawer.WithClock(clk))

	eventbus.NewNotificationRouter(a.Bus, a.Notifications).Register()
	a.Errors = api.NewErrorHandler(a.Bus)

	if cfg.API.BaseURL != "" {
		opts := []api.Option{}
		if deps.HTTPClient != nil {
			opts = append(opts, api.WithHTTPClient(deps.HTTPClient))
		}
		client, err := api.New(api.Config{
			BaseURL: cfg.API.BaseURL,
			Nonce:   cfg.API.Nonce,
			Timeout: cfg.API.Timeout,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("create api client: %w", err)
		}
		a.API = client
		a.Calendar = calendar.New(client, a.Dialogs, a.Notifications, calendar.WithEdition(cfg.API.Edition))
		a.Reservations = reservation.NewReservations(client, a.Errors)
		a.Payments = reservation.NewPayments(client, a.Errors)
	}

	var (
		notifyStore notify.Store
		dialogStore dialog.Store
	)
	if deps.DB != nil {
		notifyStore = stores.NewNotifyStore(deps.DB)
		dialogStore = stores.NewDialogStore(deps.DB)
	}
	a.History = NewHistory(notifyStore, dialogStore)

	recorder := NewRecorder(a.Bus, notifyStore, dialogStore)
	recorder.Register()
	a.unsubs = append(a.unsubs, recorder.Observe(a.Dialogs, a.Notifications))

	a.Metrics = metrics.New()
	a.Metrics.ObserveBus(a.Bus)
	unsubDialogs, err := a.Metrics.ObserveDialogs(a.Dialogs)
	if err != nil {
		return nil, err
	}
	unsubNotify, err := a.Metrics.ObserveNotifications(a.Notifications)
	if err != nil {
		return nil, err
	}
	a.unsubs = append(a.unsubs, unsubDialogs, unsubNotify)

	bridgeOpts := []bridge.Option{bridge.WithDrawer(a.Drawer)}
	if a.API != nil {
		bridgeOpts = append(bridgeOpts,
			bridge.WithCalendar(a.Calendar),
			bridge.WithReservations(a.Reservations),
			bridge.WithPayments(a.Payments),
		)
	}
	a.sources = append(a.sources, bridge.NewBusSource(a.Bus))
	if deps.NATS != nil {
		natsSource := bridge.NewNATSSource(deps.NATS, cfg.Bridge.NATS.Prefix)
		a.sources = append(a.sources, natsSource)
		bridgeOpts = append(bridgeOpts, bridge.WithEmitter(natsSource))
	}
	a.Bridge = bridge.New(a.Dialogs, a.Notifications, cfg.Bridge.Allow, bridgeOpts...)

	return a, nil
}

// Start runs the event bus, the bridge sources and, when enabled, the
// metrics endpoint. It returns immediately.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errors.New("app closed")
	}
	if a.started {
		return errors.New("app already started")
	}
	a.started = true

	// The bus outlives the sources so events published while the managers
	// shut down are still archived.
	busCtx, stopBus := context.WithCancel(ctx)
	ctx, a.stopWork = context.WithCancel(busCtx)
	a.stopBus = stopBus
	a.busDone = make(chan struct{})
	go func() {
		defer close(a.busDone)
		a.Bus.Start(busCtx)
	}()

	for _, src := range a.sources {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.Bridge.Run(ctx, src); err != nil {
				a.log.Error().Err(err).Msg("bridge source stopped")
			}
		}()
	}

	if a.Config.Metrics.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.Metrics.Serve(ctx, a.Config.Metrics.Addr); err != nil {
				a.log.Error().Err(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	a.log.Info().Int("sources", len(a.sources)).Bool("metrics", a.Config.Metrics.Enabled).Msg("app started")
	return nil
}

// ApplyConfig pushes reloaded settings into the running managers and the
// bridge. Transition and removal delays apply on the next start only.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Dialogs.SetDefaults(dialog.PatchFrom(cfg.Dialogs.Defaults))
	a.Notifications.SetDefaults(notify.PatchFrom(cfg.Notifications.Defaults))
	a.Bridge.SetAllow(cfg.Bridge.Allow)

	a.mu.Lock()
	a.Config = cfg
	a.mu.Unlock()

	a.log.Info().Msg("configuration applied")
}

// Close stops the sources first so no event arrives mid-shutdown, then
// settles outstanding dialogs with dialog.ErrClosed, waits for the work
// they release and stops the bus last.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	stopWork, stopBus, busDone := a.stopWork, a.stopBus, a.busDone
	a.mu.Unlock()

	if stopWork != nil {
		stopWork()
	}
	a.wg.Wait()

	a.Dialogs.Shutdown()
	a.Bridge.Wait()
	if a.Calendar != nil {
		a.Calendar.Wait()
	}

	for _, unsubscribe := range a.unsubs {
		unsubscribe()
	}
	a.Notifications.Shutdown()
	a.Drawer.CloseAll()

	if stopBus != nil {
		stopBus()
		<-busDone
	}
}
