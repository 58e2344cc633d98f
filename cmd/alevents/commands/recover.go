package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	recoverId   string
	recoverJson bool
)

func init() {
	recoverCmd.Flags().StringVar(&recoverId, "id", "offline", "The event id used for temporary file names.")
	recoverCmd.Flags().BoolVar(&recoverJson, "json", false, "Print the outcome as json.")
	rootCmd.AddCommand(recoverCmd)
}

var recoverCmd = &cobra.Command{
	Use:   "recover <hexfile> [--id <id>]",
	Short: "Looks for a gzip stream in a file of hex digits and decompresses what it can.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			fatal("failed to read input", err)
		}
		hexStr := strings.Join(strings.Fields(string(contents)), "")

		outcome := newRecoverer().Recover(cmd.Context(), recoverId, hexStr)
		printValue(outcome, recoverJson)
	},
}
