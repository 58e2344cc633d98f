package commands

import (
	"log/slog"

	"alertlogic-events/internal/events"

	"github.com/spf13/cobra"
)

var (
	eventCustomer string
	eventJson     bool
	eventSave     bool
)

func init() {
	eventCmd.Flags().StringVar(&eventCustomer, "customer", "", "The customer id the event belongs to, defaults to customer_id in the config.")
	eventCmd.Flags().BoolVar(&eventJson, "json", false, "Print the event as json.")
	eventCmd.Flags().BoolVar(&eventSave, "save", false, "Save the event to the archive.")
	rootCmd.AddCommand(eventCmd)
}

var eventCmd = &cobra.Command{
	Use:   "event <id> [--customer <id>] [--json] [--save]",
	Short: "Fetches an event from the console and reconstructs its payload.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := newConsoleClient(ctx)
		assembler := newAssembler(client, client, events.Markers{})

		event, err := assembler.Assemble(ctx, events.EventRef{
			ID:         args[0],
			CustomerID: customerId(eventCustomer),
		})
		if err != nil {
			fatal("failed to assemble event", err)
		}

		if eventSave {
			archive := openStore(ctx)
			err = archive.Put(ctx, event)
			if err != nil {
				fatal("failed to save event", err)
			}
			slog.Info("saved event", "id", event.ID)
		}

		printValue(event, eventJson)
	},
}
