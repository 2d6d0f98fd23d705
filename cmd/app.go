package cmd

import (
	"context"
	"os"

	"github.com/stepwisehq/stepwise/pkg/config"
	"github.com/stepwisehq/stepwise/pkg/headless"
	"github.com/stepwisehq/stepwise/pkg/solver"
	"github.com/stepwisehq/stepwise/pkg/tui"
)

// newSolverClient builds the HTTP client for the configured solver service.
// The request timeout bounds plain calls only; solve streams are governed by
// the idle timeout so a long solution is never cut off mid-step.
func newSolverClient(cfg *config.Config) *solver.Client {
	return solver.NewClient(cfg.Server.URL,
		solver.WithTimeout(cfg.Server.Timeout),
		solver.WithIdleTimeout(cfg.Server.StreamIdleTimeout),
	)
}

// runTUI starts the interactive chat screen against the configured service.
func runTUI(ctx context.Context) error {
	cfg := config.Get()
	app := tui.New(newSolverClient(cfg), cfg.Server.URL)
	return app.Run(ctx)
}

// runHeadless solves one question and prints the worked solution to stdout.
func runHeadless(ctx context.Context, question string) error {
	cfg := config.Get()
	return headless.Run(ctx, newSolverClient(cfg), question, os.Stdout, cfg.TUI.Plain)
}
