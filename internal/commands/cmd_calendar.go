package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/calendar"
)

type CalendarCmd struct {
	flags *Flags

	// flags
	ratePlan          int64
	accommodationType int64
	name              string
	from              string
	to                string
}

// NewCalendarCmd creates a new calendar command
func NewCalendarCmd(flags *Flags) *CalendarCmd {
	return &CalendarCmd{flags: flags}
}

// Register adds the calendar command to the application
func (cmd *CalendarCmd) Register(app *cli.Command) *cli.Command {
	ratePlan := func() cli.Flag {
		return &cli.Int64Flag{
			Name:        "rate-plan",
			Aliases:     []string{"r"},
			Usage:       "rate plan id",
			Destination: &cmd.ratePlan,
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "calendar",
		Usage: "Drive the rate plan calendar of a running bflex",
		Description: `Publishes calendar events on bridge.nats. The bflex instance listening there
asks for confirmation and reports progress with toasts.`,
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Sync a child rate plan with its parent",
				UsageText: "bflex calendar sync --rate-plan N --accommodation-type M [--name <accommodation>]",
				Flags: []cli.Flag{
					ratePlan(),
					&cli.Int64Flag{
						Name:        "accommodation-type",
						Aliases:     []string{"a"},
						Usage:       "accommodation type id",
						Destination: &cmd.accommodationType,
					},
					&cli.StringFlag{
						Name:        "name",
						Usage:       "accommodation name shown in the confirmation",
						Destination: &cmd.name,
					},
				},
				Action: cmd.runSync,
			},
			{
				Name:      "reload",
				Usage:     "Reload a calendar window",
				UsageText: "bflex calendar reload --rate-plan N --from YYYY-MM-DD --to YYYY-MM-DD",
				Flags: []cli.Flag{
					ratePlan(),
					&cli.StringFlag{
						Name:        "from",
						Usage:       "first date of the window",
						Destination: &cmd.from,
					},
					&cli.StringFlag{
						Name:        "to",
						Usage:       "last date of the window",
						Destination: &cmd.to,
					},
				},
				Action: cmd.runReload,
			},
		},
	})

	return app
}

func (cmd *CalendarCmd) runSync(_ context.Context, _ *cli.Command) error {
	if cmd.ratePlan <= 0 || cmd.accommodationType <= 0 {
		return errors.New("--rate-plan and --accommodation-type are required")
	}
	return cmd.send(bridge.EventCalendarSync, calendar.SyncTarget{
		RatePlanID:          cmd.ratePlan,
		AccommodationTypeID: cmd.accommodationType,
		AccommodationName:   cmd.name,
	})
}

func (cmd *CalendarCmd) runReload(_ context.Context, _ *cli.Command) error {
	if cmd.ratePlan <= 0 || cmd.from == "" || cmd.to == "" {
		return errors.New("--rate-plan, --from and --to are required")
	}
	return cmd.send(bridge.EventCalendarReload, calendar.Params{
		DateFrom:   cmd.from,
		DateTo:     cmd.to,
		RatePlanID: cmd.ratePlan,
	})
}

func (cmd *CalendarCmd) send(event string, detail any) error {
	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return publish(cmd.flags.Config.Bridge.NATS, event, body)
}
