package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stepwisehq/stepwise/pkg/config"
	"github.com/stepwisehq/stepwise/pkg/mathd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local solver service",
	Long: `Serve starts a self-contained solver service speaking the same wire
protocol as the hosted tutor: streaming solve endpoint, feedback capture,
learning stats, health and context. Useful for development and offline
work; point the client at it with --server.

The built-in solver handles linear equations and arithmetic. Set
solver.provider to "ollama" to route unsolved questions through a local
model instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()

		srv, err := mathd.NewServer(serveOptions(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting solver: %v\n", err)
			os.Exit(1)
		}
		defer srv.Close()

		ctx, stop := signalContext()
		defer stop()

		fmt.Printf("stepwise solver listening on %s\n", cfg.Solver.Listen)
		if err := srv.Run(ctx, cfg.Solver.Listen); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// serveOptions maps the solver section of the config onto server options.
func serveOptions(cfg *config.Config) mathd.Options {
	return mathd.Options{
		DBPath:        cfg.Solver.DBPath,
		KBDir:         cfg.Solver.KB.PersistDir,
		MinScore:      cfg.Solver.KB.MinScore,
		StepDelay:     cfg.Solver.StepDelay,
		Provider:      cfg.Solver.Provider,
		OllamaURL:     cfg.Solver.Ollama.URL,
		OllamaModel:   cfg.Solver.Ollama.Model,
		OllamaTimeout: cfg.Solver.Ollama.Timeout,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8000", "address to listen on")
	viper.BindPFlag("solver.listen", serveCmd.Flags().Lookup("listen"))

	serveCmd.Flags().String("db", "./.stepwise/feedback.db", "feedback database path")
	viper.BindPFlag("solver.db_path", serveCmd.Flags().Lookup("db"))

	serveCmd.Flags().String("step-delay", "0s", "pause between streamed steps (0s uses the server default)")
	viper.BindPFlag("solver.step_delay", serveCmd.Flags().Lookup("step-delay"))
}
