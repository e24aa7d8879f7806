// Package metrics exposes dialog, notification and event bus activity as
// Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/eventbus"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/core/notify"
)

const namespace = "bflex"

// DialogManager is the part of the dialog manager the collector reads.
type DialogManager interface {
	Subscribe(fn dialog.Listener) func()
	Len() int
}

// NotificationManager is the part of the notification manager the
// collector reads.
type NotificationManager interface {
	Subscribe(fn notify.Listener) func()
	Notifications() []notify.Notification
}

// Collector owns a private registry so tests and multiple app instances do
// not collide on the default one.
type Collector struct {
	reg *prometheus.Registry
	log zerolog.Logger

	dialogsResolved    *prometheus.CounterVec
	notificationsShown *prometheus.CounterVec
	apiErrors          *prometheus.CounterVec
	busDropped         *prometheus.CounterVec
}

// New returns a collector with the Go and process collectors registered.
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		log: logging.Component("metrics"),
		dialogsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogs_resolved_total",
			Help:      "Dialogs settled by the user, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		notificationsShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_shown_total",
			Help:      "Notifications admitted, by type.",
		}, []string{"type"}),
		apiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "REST API failures, by classification.",
		}, []string{"kind"}),
		busDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eventbus_dropped_total",
			Help:      "Events dropped because the bus buffer was full.",
		}, []string{"event"}),
	}
	c.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.dialogsResolved,
		c.notificationsShown,
		c.apiErrors,
		c.busDropped,
	)
	return c
}

// Registry returns the collector registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// ObserveDialogs counts resolved dialogs and exports the queue length. It
// returns the unsubscribe func.
func (c *Collector) ObserveDialogs(m DialogManager) (func(), error) {
	queued := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dialogs_queued",
		Help:      "Dialogs waiting behind the active one.",
	}, func() float64 { return float64(m.Len()) })
	if err := c.reg.Register(queued); err != nil {
		return nil, fmt.Errorf("register dialog gauge: %w", err)
	}

	return m.Subscribe(func(ev dialog.Event) {
		if ev.Type != dialog.EventResolved {
			return
		}
		outcome := "resolved"
		if ev.Cancelled {
			outcome = "cancelled"
		}
		c.dialogsResolved.WithLabelValues(string(ev.Dialog.Kind), outcome).Inc()
	}), nil
}

// ObserveNotifications counts shown notifications and exports how many are
// open. It returns the unsubscribe func.
func (c *Collector) ObserveNotifications(m NotificationManager) (func(), error) {
	open := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifications_open",
		Help:      "Notifications currently visible.",
	}, func() float64 {
		n := 0
		for _, x := range m.Notifications() {
			if x.Open {
				n++
			}
		}
		return float64(n)
	})
	if err := c.reg.Register(open); err != nil {
		return nil, fmt.Errorf("register notification gauge: %w", err)
	}

	return m.Subscribe(func(ev notify.Event) {
		if ev.Type == notify.EventShown {
			c.notificationsShown.WithLabelValues(string(ev.Notification.Type)).Inc()
		}
	}), nil
}

// ObserveBus counts API failures and dropped events.
func (c *Collector) ObserveBus(bus *eventbus.EventBus) {
	bus.SubscribeAPIFailed(func(p eventbus.APIFailedPayload) {
		c.apiErrors.WithLabelValues(p.Kind).Inc()
	})
	bus.OnDrop(func(ev eventbus.Event, _ any) {
		c.busDropped.WithLabelValues(string(ev)).Inc()
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("addr", addr).Msg("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}
