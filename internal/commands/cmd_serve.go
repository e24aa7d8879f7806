package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/bflex/internal/app"
	"github.com/colonyops/bflex/internal/core/config"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/tui"
	"github.com/colonyops/bflex/pkg/profiler"
)

type ServeCmd struct {
	flags *Flags

	// flags
	headless     bool
	noWatch      bool
	profilerPort int
}

// NewServeCmd creates the serve command. It is also the default action.
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Flags returns the serve flags for registration on the root command
func (cmd *ServeCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "headless",
			Usage:       "run without the terminal viewer",
			Sources:     cli.EnvVars("BFLEX_HEADLESS"),
			Destination: &cmd.headless,
		},
		&cli.BoolFlag{
			Name:        "no-watch",
			Usage:       "do not reload the config file when it changes",
			Destination: &cmd.noWatch,
		},
		&cli.IntFlag{
			Name:        "profiler-port",
			Usage:       "enable pprof HTTP endpoint on specified port (e.g., 6060)",
			Sources:     cli.EnvVars("BFLEX_PROFILER_PORT"),
			Destination: &cmd.profilerPort,
		},
	}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the dialog and notification queues",
		UsageText: "bflex serve [--headless] [--no-watch] [--profiler-port N]",
		Description: `Starts the dialog and notification managers, the legacy event bridge and,
when configured, the NATS source and the metrics endpoint.

When stdout is a terminal the queues are shown in an interactive viewer;
otherwise (or with --headless) bflex runs until interrupted.`,
		Flags:  cmd.Flags(),
		Action: cmd.Run,
	})

	return app
}

// Run executes serve. Exported for use as default command.
func (cmd *ServeCmd) Run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.profilerPort > 0 {
		prof := profiler.New(cmd.profilerPort, logging.Component("profiler"))
		if err := prof.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := prof.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
	}

	var conn *nats.Conn
	if cfg.Bridge.NATS.Enabled() {
		c, err := connectNATS(cfg.Bridge.NATS)
		if err != nil {
			return err
		}
		defer c.Close()
		conn = c
	}

	a, err := app.New(cfg, app.Deps{DB: cmd.flags.DB, NATS: conn})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	if !cmd.noWatch {
		w, err := config.Watch(ctx, cmd.flags.ConfigPath, cmd.flags.DataDir, a.ApplyConfig)
		if err != nil {
			log.Warn().Err(err).Str("path", cmd.flags.ConfigPath).Msg("config reload disabled")
		} else {
			defer func() { _ = w.Close() }()
		}
	}

	if cmd.headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Info().Msg("running headless")
		<-ctx.Done()
		return nil
	}

	m := tui.New(a.Dialogs, a.Notifications, tui.Options{Markdown: cfg.TUI.Markdown, Drawer: a.Drawer})
	defer m.Close()

	p := tea.NewProgram(m)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
