package commands

import (
	"os"
	"strings"

	"alertlogic-events/internal/events"
	"alertlogic-events/lib/hexdump"

	"github.com/spf13/cobra"
)

var (
	decodeStart string
	decodeEnd   string
	decodeId    string
	decodeJson  bool
)

func init() {
	defaults := events.DefaultMarkers()
	decodeCmd.Flags().StringVar(&decodeStart, "start", defaults.Start, "The text that starts the hex dump region of a saved page.")
	decodeCmd.Flags().StringVar(&decodeEnd, "end", defaults.End, "The text that ends the hex dump region of a saved page.")
	decodeCmd.Flags().StringVar(&decodeId, "id", "offline", "The event id used for temporary file names.")
	decodeCmd.Flags().BoolVar(&decodeJson, "json", false, "Print the result as json.")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <file> [--start <marker>] [--end <marker>] [--id <id>]",
	Short: "Runs the reconstruction pipeline on a saved event page or a plain hex dump.",
	Long: "Runs the reconstruction pipeline on a saved event page or a plain hex dump. " +
		"Files that contain the start marker are assembled as event pages, anything else is read as dump lines.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		contents, err := os.ReadFile(args[0])
		if err != nil {
			fatal("failed to read input", err)
		}
		text := string(contents)

		assembler := newAssembler(nil, nil, events.Markers{Start: decodeStart, End: decodeEnd})

		if decodeStart != "" && strings.Contains(text, decodeStart) {
			event, err := assembler.AssemblePage(ctx, events.EventRef{ID: decodeId}, text)
			if err != nil {
				fatal("failed to assemble page", err)
			}
			printValue(event, decodeJson)
			return
		}

		payload, err := assembler.DecodeDump(ctx, decodeId, hexdump.ExtractLines(text))
		if err != nil {
			fatal("failed to decode dump", err)
		}
		printValue(payload, decodeJson)
	},
}
