package headless

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/stepwisehq/stepwise/pkg/solver"
)

// Run executes a single question in headless mode and writes the streamed
// progress plus the final solution to out. This is the main entry point for
// one-shot CLI execution.
func Run(ctx context.Context, client *solver.Client, question string, out io.Writer, plain bool) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question cannot be empty in headless mode")
	}

	runner := newRunner(client, out, plain)
	if err := runner.run(ctx, question); err != nil {
		return fmt.Errorf("failed to solve: %w", err)
	}
	return nil
}
