package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/bflex/internal/app"
	"github.com/colonyops/bflex/internal/data/stores"
	"github.com/colonyops/bflex/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
	filter     string
	limit      int
	clear      bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List archived notifications and dialogs",
		UsageText: "bflex history [--json] [--filter <query>] [--limit N] [--clear]",
		Description: `Displays closed notifications and resolved dialogs, newest first.

--filter fuzzy-matches the title and message. Use --clear to empty the archive.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "filter",
				Aliases:     []string{"f"},
				Usage:       "fuzzy filter on title and message",
				Destination: &cmd.filter,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "show at most N entries (0 for all)",
				Value:       50,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "clear",
				Usage:       "delete every archived entry",
				Destination: &cmd.clear,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.DB == nil {
		return fmt.Errorf("history database is not open")
	}
	history := app.NewHistory(stores.NewNotifyStore(cmd.flags.DB), stores.NewDialogStore(cmd.flags.DB))
	w := c.Root().Writer

	if cmd.clear {
		if err := history.Clear(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "history cleared")
		return err
	}

	entries, err := history.Entries(ctx)
	if err != nil {
		return err
	}
	entries = app.FilterEntries(entries, cmd.filter)
	if cmd.limit > 0 && len(entries) > cmd.limit {
		entries = entries[:cmd.limit]
	}

	if cmd.jsonOutput {
		return iojson.Write(w, c.Root().ErrWriter, entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history entries.")
		return err
	}
	return writeEntries(w, entries)
}

func writeEntries(w io.Writer, entries []app.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "AT\tKIND\tTYPE\tTITLE\tMESSAGE\tRESULT")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(time.DateTime),
			e.Kind,
			e.Type,
			e.Title,
			oneLine(e.Message),
			outcome(e),
		)
	}
	return tw.Flush()
}

func outcome(e app.Entry) string {
	switch {
	case e.Kind != app.EntryDialog:
		return "-"
	case e.Cancelled:
		return "cancelled"
	case len(e.Result) == 0:
		return "null"
	default:
		return string(e.Result)
	}
}

func oneLine(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return string(r)
}
