package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/core/notify"
)

type NotifyCmd struct {
	flags *Flags

	// flags
	kind     string
	title    string
	duration time.Duration
	sticky   bool
	position string
	icon     string
}

// NewNotifyCmd creates a new notify command
func NewNotifyCmd(flags *Flags) *NotifyCmd {
	return &NotifyCmd{flags: flags}
}

// Register adds the notify command to the application
func (cmd *NotifyCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notify",
		Usage:     "Send a notification to a running bflex",
		UsageText: "bflex notify [--type <type>] [--title <title>] <message>",
		Description: `Publishes a bflex:notify event over NATS. A running 'bflex serve' with the
same bridge.nats settings shows it as a toast.

Examples:
  bflex notify "Reservation saved"
  bflex notify --type warning --title Quota "Only 3 rooms left"
  bflex notify --sticky --position top-right "Payment pending"`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "notification type (primary, success, neutral, warning, danger)",
				Destination: &cmd.kind,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "notification title",
				Destination: &cmd.title,
			},
			&cli.DurationFlag{
				Name:        "duration",
				Aliases:     []string{"d"},
				Usage:       "time until the notification closes itself",
				Destination: &cmd.duration,
			},
			&cli.BoolFlag{
				Name:        "sticky",
				Usage:       "keep the notification until it is closed",
				Destination: &cmd.sticky,
			},
			&cli.StringFlag{
				Name:        "position",
				Aliases:     []string{"p"},
				Usage:       "screen position (top-left, top-center, top-right, bottom-left, bottom-center, bottom-right)",
				Destination: &cmd.position,
			},
			&cli.StringFlag{
				Name:        "icon",
				Usage:       "icon name",
				Destination: &cmd.icon,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *NotifyCmd) run(_ context.Context, c *cli.Command) error {
	detail, err := cmd.detail(strings.Join(c.Args().Slice(), " "), c.IsSet("duration"))
	if err != nil {
		return err
	}

	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	return publish(cmd.flags.Config.Bridge.NATS, bridge.EventNotify, body)
}

// detail builds the event payload and rejects values the manager would not
// accept.
func (cmd *NotifyCmd) detail(message string, durationSet bool) (bridge.NotificationDetail, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return bridge.NotificationDetail{}, errors.New("message is required")
	}

	d := bridge.NotificationDetail{
		Type:     notify.Type(cmd.kind),
		Message:  message,
		Title:    cmd.title,
		Icon:     cmd.icon,
		Position: notify.Position(cmd.position),
	}
	if d.Type != "" && !d.Type.IsValid() {
		return d, fmt.Errorf("invalid type %q", cmd.kind)
	}
	if d.Position != "" && !d.Position.IsValid() {
		return d, fmt.Errorf("invalid position %q", cmd.position)
	}

	switch {
	case cmd.sticky:
		d.Duration = new(int64)
	case durationSet:
		if cmd.duration <= 0 {
			return d, errors.New("duration must be positive, use --sticky to disable auto close")
		}
		ms := cmd.duration.Milliseconds()
		d.Duration = &ms
	}
	return d, nil
}
