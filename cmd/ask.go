package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Solve a single question and print the steps",
	Long: `Ask sends one question to the solver service, waits for the complete
worked solution, and prints it. Multiple arguments are joined into a
single question, so quoting is optional:

  stepwise ask solve 2x + 5 = 11`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		if err := runHeadless(ctx, questionFromArgs(args)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// questionFromArgs joins command arguments into one question string.
func questionFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func init() {
	rootCmd.AddCommand(askCmd)
}
