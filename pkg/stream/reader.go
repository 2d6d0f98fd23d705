package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/stepwisehq/stepwise/pkg/logger"
)

// ErrIdleTimeout reports that the stream saw no bytes for longer than the
// configured idle window.
var ErrIdleTimeout = errors.New("stream idle timeout")

const (
	dataPrefix   = "data: "
	maxLineBytes = 1024 * 1024
	eventsBuffer = 100
)

// Options tunes a Stream. The zero value reads until the server closes the
// connection or the consumer cancels.
type Options struct {
	// IdleTimeout cancels the stream if no bytes arrive for this long.
	// Zero disables the watchdog.
	IdleTimeout time.Duration
}

// Stream turns a server-sent event body into an ordered channel of
// envelopes. Lines that do not carry a data payload are ignored, and frames
// that fail to parse are logged and skipped so one bad frame cannot kill the
// stream. The channel closes when the body ends, errors, or is cancelled.
type Stream struct {
	events chan Envelope
	body   io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once

	mu  sync.Mutex
	err error

	log *logger.Logger
}

// New starts reading body in a goroutine. Cancelling ctx has the same effect
// as calling Cancel.
func New(ctx context.Context, body io.ReadCloser, opts Options) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Envelope, eventsBuffer),
		body:   body,
		cancel: cancel,
		log:    logger.WithComponent("stream"),
	}
	go s.read(ctx, opts.IdleTimeout)
	return s
}

// Events returns the ordered envelope channel. It is closed exactly once,
// after the last envelope.
func (s *Stream) Events() <-chan Envelope {
	return s.events
}

// Cancel stops reading and releases the body. It is idempotent and safe to
// call after the stream has already ended. A cancelled stream is not an
// error: Err stays nil unless the transport itself failed first.
func (s *Stream) Cancel() {
	s.once.Do(func() {
		s.cancel()
		_ = s.body.Close()
	})
}

// Err reports the first transport failure, ErrIdleTimeout when the watchdog
// fired, or nil after a clean end or consumer cancel. Valid once Events is
// closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Stream) read(ctx context.Context, idle time.Duration) {
	defer close(s.events)
	defer s.Cancel()

	var watchdog *time.Timer
	if idle > 0 {
		watchdog = time.AfterFunc(idle, func() {
			s.setErr(ErrIdleTimeout)
			s.Cancel()
		})
		defer watchdog.Stop()
	}

	scanner := bufio.NewScanner(watchdogBody{body: s.body, timer: watchdog, window: idle})
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := line[len(dataPrefix):]
		if strings.TrimSpace(payload) == "" {
			continue
		}
		env, err := ParseEnvelope([]byte(payload))
		if err != nil {
			s.log.Warn("Skipping malformed stream frame", "error", err)
			continue
		}
		select {
		case s.events <- env:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.setErr(err)
	}
}

// watchdogBody rearms the idle timer before each read so the timeout
// measures gaps between bytes, not total stream duration.
type watchdogBody struct {
	body   io.Reader
	timer  *time.Timer
	window time.Duration
}

func (w watchdogBody) Read(p []byte) (int, error) {
	if w.timer != nil {
		w.timer.Reset(w.window)
	}
	return w.body.Read(p)
}
