package headless

import (
	"fmt"
	"io"
	"sync"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

// progressPrinter prints streaming status transitions to the console. Each
// status text is printed once; the solution steps are left for the final
// block so they appear exactly once.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	lastText string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

// update is called from the stream dispatch goroutine on every message
// mutation and must not block.
func (p *progressPrinter) update(msg chat.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !msg.IsStreaming() || msg.Text == "" || msg.Text == p.lastText {
		return
	}
	p.lastText = msg.Text
	fmt.Fprintf(p.out, "[%3d%%] %s\n", msg.Progress, msg.Text)
}
