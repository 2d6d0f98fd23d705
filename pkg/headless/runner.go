package headless

import (
	"context"
	"fmt"
	"io"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/logger"
	"github.com/stepwisehq/stepwise/pkg/render"
	"github.com/stepwisehq/stepwise/pkg/session"
	"github.com/stepwisehq/stepwise/pkg/solver"
)

const outputWidth = 80

// runner drives one conversation turn without a screen. Progress lines are
// printed as the stream advances; the full solution block is printed once the
// session reaches a terminal state.
type runner struct {
	manager  *session.Manager
	renderer *render.Renderer
	printer  *progressPrinter
	out      io.Writer
	log      *logger.Logger
	done     chan error
}

func newRunner(client *solver.Client, out io.Writer, plain bool) *runner {
	r := &runner{
		renderer: render.New(outputWidth, plain),
		printer:  newProgressPrinter(out),
		out:      out,
		log:      logger.WithComponent("headless"),
		done:     make(chan error, 1),
	}

	store := chat.NewStore()
	r.manager = session.NewManager(client, store, session.Sinks{
		OnUpdate: func() {
			if msg, ok := store.LastAssistant(); ok {
				r.printer.update(msg)
			}
		},
		OnCompleted: func(chat.Message) { r.done <- nil },
		OnError:     func(_ chat.Message, err error) { r.done <- err },
		OnUnknown: func(event string) {
			r.log.Debug("Ignoring unknown event type", "type", event)
		},
	})
	return r
}

// run blocks until the solver answers, the stream fails, or ctx is cancelled.
// The assistant's terminal message is printed in all three cases.
func (r *runner) run(ctx context.Context, question string) error {
	if _, err := r.manager.Ask(ctx, question); err != nil {
		return err
	}

	select {
	case err := <-r.done:
		r.printFinal()
		return err
	case <-ctx.Done():
		r.manager.CancelActive()
		r.printFinal()
		return ctx.Err()
	}
}

func (r *runner) printFinal() {
	msg, ok := r.manager.Store().LastAssistant()
	if !ok {
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.renderer.RenderMessage(msg))
}
