package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stepwisehq/stepwise/pkg/config"
	"github.com/stepwisehq/stepwise/pkg/render"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the solver service health",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		ctx, stop := signalContext()
		defer stop()

		health, err := newSolverClient(cfg).Health(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching health: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(render.New(reportWidth, cfg.TUI.Plain).RenderHealth(health))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
