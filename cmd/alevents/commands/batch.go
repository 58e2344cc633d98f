package commands

import (
	"log/slog"
	"os"

	"alertlogic-events/internal/events"
	"alertlogic-events/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	batchCustomer string
	batchParallel int
	batchSave     bool
)

func init() {
	batchCmd.Flags().StringVar(&batchCustomer, "customer", "", "The customer id the events belong to, defaults to customer_id in the config.")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 4, "The maximum number of events processed at once.")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "Save every assembled event to the archive.")
	rootCmd.AddCommand(batchCmd)
}

type batchResult struct {
	event events.Event
	err   error
}

var batchCmd = &cobra.Command{
	Use:   "batch <id>... [--customer <id>] [--parallel <n>] [--save]",
	Short: "Fetches several events at once and prints a summary table.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newConsoleClient(ctx)
		assembler := newAssembler(client, client, events.Markers{})

		var archive *store.Store
		if batchSave {
			opened := openStore(ctx)
			archive = &opened
		}

		results := make([]batchResult, len(args))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(max(batchParallel, 1))
		for i, id := range args {
			group.Go(func() error {
				event, err := assembler.Assemble(groupCtx, events.EventRef{
					ID:         id,
					CustomerID: customerId(batchCustomer),
				})
				if err == nil && archive != nil {
					err = archive.Put(groupCtx, event)
				}
				if err != nil {
					// a failing event never stops the others
					slog.Error("failed to process event", "id", id, "err", err)
				}
				results[i] = batchResult{event: event, err: err}
				return nil
			})
		}
		group.Wait()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Event", "Signature", "Severity", "Url", "Response", "Decompressed"})
		failed := 0
		for i, r := range results {
			if r.err != nil {
				failed++
				t.AppendRow(table.Row{args[i], "error: " + r.err.Error()})
				continue
			}
			t.AppendRow(table.Row{
				r.event.ID,
				r.event.Details.SignatureName,
				r.event.Details.Severity,
				r.event.Payload.Packet.Request.FullURL,
				r.event.Payload.Packet.Response.Code,
				r.event.Payload.Decompressed.Kind.String(),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if failed > 0 {
			slog.Warn("some events could not be processed", "failed", failed, "total", len(results))
			os.Exit(1)
		}
	},
}
