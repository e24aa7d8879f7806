package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/core/dialog"
)

type DialogCmd struct {
	flags *Flags

	// flags
	kind        string
	title       string
	variant     string
	confirmText string
	cancelText  string
	input       string
	timeout     time.Duration
}

// NewDialogCmd creates a new dialog command
func NewDialogCmd(flags *Flags) *DialogCmd {
	return &DialogCmd{flags: flags}
}

// Register adds the dialog command to the application
func (cmd *DialogCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "dialog",
		Usage:     "Ask a question through a running bflex and print the answer",
		UsageText: "bflex dialog [--type confirm|alert|prompt] [--title <title>] <message>",
		Description: `Sends a bflex:dialog request over NATS and waits for the dialog to be
resolved. The result is printed as JSON: true/false for confirm and alert,
the entered text (or null when cancelled) for prompt.

Examples:
  bflex dialog "Delete reservation 42?"
  bflex dialog --type prompt --title "Guest" --input "Ann" "Guest name?"`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "type",
				Aliases:     []string{"t"},
				Usage:       "dialog type (confirm, alert, prompt)",
				Value:       string(dialog.KindConfirm),
				Destination: &cmd.kind,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "dialog title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "variant",
				Usage:       "button style (primary, success, neutral, warning, danger)",
				Destination: &cmd.variant,
			},
			&cli.StringFlag{
				Name:        "confirm-text",
				Usage:       "confirm button label",
				Destination: &cmd.confirmText,
			},
			&cli.StringFlag{
				Name:        "cancel-text",
				Usage:       "cancel button label",
				Destination: &cmd.cancelText,
			},
			&cli.StringFlag{
				Name:        "input",
				Usage:       "initial prompt value",
				Destination: &cmd.input,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "how long to wait for an answer",
				Value:       5 * time.Minute,
				Destination: &cmd.timeout,
			},
		},
		Action: cmd.run,
	})

	return app
}

// dialogRequest is the bflex:dialog payload.
type dialogRequest struct {
	ID string `json:"id"`
	dialog.Options
}

func (cmd *DialogCmd) run(ctx context.Context, c *cli.Command) error {
	req, err := cmd.request(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode dialog: %w", err)
	}

	conn, err := connectNATS(cmd.flags.Config.Bridge.NATS)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, cmd.timeout)
	defer cancel()

	subject := bridge.Subject(cmd.flags.Config.Bridge.NATS.Prefix, bridge.EventDialog)
	reply, err := conn.RequestWithContext(ctx, subject, body)
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return errors.New("no bflex instance is listening, is 'bflex serve' running?")
	case err != nil:
		return fmt.Errorf("request %s: %w", subject, err)
	}

	result, err := decodeResult(reply.Data, req.ID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Root().Writer, string(result))
	return err
}

func (cmd *DialogCmd) request(message string) (dialogRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return dialogRequest{}, errors.New("message is required")
	}

	kind := dialog.Kind(cmd.kind)
	switch kind {
	case dialog.KindConfirm, dialog.KindAlert, dialog.KindPrompt:
	default:
		return dialogRequest{}, fmt.Errorf("invalid type %q", cmd.kind)
	}

	variant := dialog.Variant(cmd.variant)
	if variant != "" && !variant.IsValid() {
		return dialogRequest{}, fmt.Errorf("invalid variant %q", cmd.variant)
	}

	opts := dialog.Options{
		Title:       cmd.title,
		Message:     message,
		Kind:        kind,
		Variant:     variant,
		ConfirmText: cmd.confirmText,
		CancelText:  cmd.cancelText,
		InputValue:  cmd.input,
	}
	if kind == dialog.KindAlert {
		opts.ShowCancel = dialog.Bool(false)
	}

	return dialogRequest{ID: uuid.NewString(), Options: opts}, nil
}

// decodeResult extracts the result of a reply to the request with id.
func decodeResult(data []byte, id string) (json.RawMessage, error) {
	var reply struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("decode dialog result: %w", err)
	}
	if reply.ID != id {
		return nil, fmt.Errorf("dialog result for %q, want %q", reply.ID, id)
	}
	if len(reply.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return reply.Result, nil
}
