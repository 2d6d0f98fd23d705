package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stepwisehq/stepwise/pkg/config"
	"github.com/stepwisehq/stepwise/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Terminal client for a step-by-step math tutor",
	Long: `Stepwise chats with a streaming math solver service. Worked solutions
arrive step by step and render live in the terminal; rate them afterwards
and the service learns from the feedback.

Run it bare for the interactive TUI, or pass --prompt to solve a single
question and print the result.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		if prompt := viper.GetString("prompt"); prompt != "" {
			if err := runHeadless(ctx, prompt); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := runTUI(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// Execute runs the root command. main calls this once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .stepwise/settings.yaml)")

	rootCmd.PersistentFlags().StringP("server", "s", "", "solver service URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().Bool("plain", false, "plain text output, no colors or styling")
	viper.BindPFlag("tui.plain", rootCmd.PersistentFlags().Lookup("plain"))

	rootCmd.PersistentFlags().StringP("prompt", "p", "", "solve a single question without entering the TUI")
	viper.BindPFlag("prompt", rootCmd.PersistentFlags().Lookup("prompt"))
}

// initConfig loads configuration and brings up the file logger before any
// command runs. The TUI owns the screen, so logs never go to stdout.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
