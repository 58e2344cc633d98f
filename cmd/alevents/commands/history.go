package commands

import (
	"errors"
	"os"

	"alertlogic-events/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJson  bool
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "The number of events to list.")
	historyCmd.Flags().BoolVar(&historyJson, "json", false, "Print a single event as json.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [id] [--limit <n>]",
	Short: "Lists archived events, or prints one of them.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		archive := openStore(ctx)

		if len(args) == 1 {
			record, err := archive.Get(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				fatal("event is not archived", err)
			}
			if err != nil {
				fatal("failed to read archive", err)
			}
			printValue(record.Event, historyJson)
			return
		}

		summaries, err := archive.List(ctx, historyLimit)
		if err != nil {
			fatal("failed to list archive", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Event", "Customer", "Signature", "Severity", "Decompressed", "Fetched"})
		for _, s := range summaries {
			t.AppendRow(table.Row{
				s.ID,
				s.CustomerID,
				s.SignatureName,
				s.Severity,
				s.Outcome,
				s.FetchedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
