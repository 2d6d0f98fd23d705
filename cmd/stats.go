package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stepwisehq/stepwise/pkg/config"
	"github.com/stepwisehq/stepwise/pkg/render"
)

// reportWidth is the render width for one-shot reports.
const reportWidth = 80

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the solver's learning stats",
	Long:  `Stats fetches feedback aggregates from the solver service: rating averages, per-route accuracy and the learning status.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		ctx, stop := signalContext()
		defer stop()

		stats, err := newSolverClient(cfg).LearningStats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching learning stats: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(render.New(reportWidth, cfg.TUI.Plain).RenderStats(stats))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
