package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/reservation"
	"github.com/colonyops/bflex/pkg/iojson"
)

type ReservationCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
	open       bool
}

// NewReservationCmd creates the reservation and payment commands
func NewReservationCmd(flags *Flags) *ReservationCmd {
	return &ReservationCmd{flags: flags}
}

// Register adds the reservation and payment commands to the application
func (cmd *ReservationCmd) Register(app *cli.Command) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "open",
				Usage:       "open the drawer in a running bflex instead of printing",
				Destination: &cmd.open,
			},
		}
	}

	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "reservation",
			Usage:     "Show a reservation",
			UsageText: "bflex reservation [--json] [--open] <id>",
			Description: `Loads a reservation from the plugin API configured under api.

With --open the reservation drawer is opened in the bflex instance listening
on bridge.nats instead.`,
			Flags:  flags(),
			Action: cmd.runReservation,
		},
		&cli.Command{
			Name:      "payment",
			Usage:     "Show a payment",
			UsageText: "bflex payment [--json] [--open] <id>",
			Description: `Loads a payment and the reservation it pays for from the plugin API.

With --open the payment drawer is opened in the bflex instance listening on
bridge.nats instead.`,
			Flags:  flags(),
			Action: cmd.runPayment,
		},
	)

	return app
}

func (cmd *ReservationCmd) runReservation(ctx context.Context, c *cli.Command) error {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return errors.New("reservation id is required")
	}
	if cmd.open {
		return cmd.publishOpen(bridge.EventReservationOpen, json.Number(id))
	}

	client, err := newAPIClient(cmd.flags.Config.API)
	if err != nil {
		return err
	}
	r, err := reservation.NewReservations(client, nil).Load(ctx, id)
	if err != nil {
		return err
	}

	w := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.Write(w, c.Root().ErrWriter, r)
	}
	return writeReservation(w, r)
}

func (cmd *ReservationCmd) runPayment(ctx context.Context, c *cli.Command) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Args().First()), 10, 64)
	if err != nil || id <= 0 {
		return errors.New("payment id must be a positive number")
	}
	if cmd.open {
		return cmd.publishOpen(bridge.EventPaymentOpen, json.Number(strconv.FormatInt(id, 10)))
	}

	client, err := newAPIClient(cmd.flags.Config.API)
	if err != nil {
		return err
	}
	p, err := reservation.NewPayments(client, nil).Load(ctx, id)
	if err != nil {
		return err
	}

	w := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.Write(w, c.Root().ErrWriter, p)
	}
	return writePayment(w, p)
}

func (cmd *ReservationCmd) publishOpen(event string, id json.Number) error {
	body, err := json.Marshal(map[string]json.Number{"id": id})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return publish(cmd.flags.Config.Bridge.NATS, event, body)
}

func writeReservation(w io.Writer, r reservation.Reservation) error {
	state := string(r.Status)
	switch {
	case r.NeedsPayment():
		state += ", waiting for payment"
	case r.IsPaid():
		state += ", paid"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Reservation\t%s\n", r.ID)
	_, _ = fmt.Fprintf(tw, "Status\t%s\n", state)
	_, _ = fmt.Fprintf(tw, "Guest\t%s\n", orDash(r.GuestName()))
	_, _ = fmt.Fprintf(tw, "Stay\t%s to %s\n", orDash(r.CheckIn()), orDash(r.CheckOut()))
	_, _ = fmt.Fprintf(tw, "Accommodation\t%s\n", orDash(r.AccommodationName()))
	_, _ = fmt.Fprintf(tw, "Rate plan\t%s\n", orDash(r.RatePlanName()))
	_, _ = fmt.Fprintf(tw, "Total\t%.2f\n", float64(r.TotalAmount))
	return tw.Flush()
}

func writePayment(w io.Writer, p reservation.Payment) error {
	related := "-"
	if r, ok := p.RelatedReservation(); ok {
		related = r.ID.String()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Payment\t%s\n", p.ID)
	_, _ = fmt.Fprintf(tw, "Status\t%s\n", p.Status)
	_, _ = fmt.Fprintf(tw, "Amount\t%s\n", orDash(p.FormattedAmount()))
	_, _ = fmt.Fprintf(tw, "Gateway\t%s\n", orDash(p.GatewayName))
	_, _ = fmt.Fprintf(tw, "Client\t%s\n", orDash(p.ClientName()))
	_, _ = fmt.Fprintf(tw, "Reservation\t%s\n", related)
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
