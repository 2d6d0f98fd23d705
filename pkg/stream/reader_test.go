package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns the body in fixed pieces so tests can split lines
// across read boundaries.
type chunkReader struct {
	chunks []string
	closed bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.closed || len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n == len(c.chunks[0]) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = c.chunks[0][n:]
	}
	return n, nil
}

func (c *chunkReader) Close() error {
	c.closed = true
	return nil
}

func collect(t *testing.T, s *Stream) []Envelope {
	t.Helper()
	var envs []Envelope
	timeout := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-s.Events():
			if !ok {
				return envs
			}
			envs = append(envs, env)
		case <-timeout:
			t.Fatal("timed out draining stream")
		}
	}
}

func TestStreamParsing(t *testing.T) {
	t.Run("parses data lines into envelopes in order", func(t *testing.T) {
		body := strings.Join([]string{
			`data: {"type": "connected", "session_id": "abc"}`,
			``,
			`data: {"type": "processing_started", "message": "Starting to solve your math problem...", "question": "2x+5=11"}`,
			``,
			`data: {"type": "solution_complete", "data": {"final_answer": "x = 3"}}`,
			``,
		}, "\n")
		s := New(context.Background(), io.NopCloser(strings.NewReader(body)), Options{})

		envs := collect(t, s)

		require.Len(t, envs, 3)
		assert.Equal(t, EventConnected, envs[0].Type)
		assert.Equal(t, EventProcessingStarted, envs[1].Type)
		assert.Equal(t, EventSolutionComplete, envs[2].Type)
		assert.NoError(t, s.Err())
	})

	t.Run("reassembles a line split across reads", func(t *testing.T) {
		body := &chunkReader{chunks: []string{
			`data: {"a":1`,
			"}\n",
		}}
		s := New(context.Background(), body, Options{})

		envs := collect(t, s)

		require.Len(t, envs, 1)
		assert.Equal(t, "", envs[0].Type)
		assert.JSONEq(t, `{"a":1}`, string(envs[0].Raw))
	})

	t.Run("reassembles frames regardless of chunk boundaries", func(t *testing.T) {
		full := `data: {"type": "step_generated", "step_number": 2, "total_steps": 4, "step_data": {"step": 2, "text": "Subtract 5", "type": "algebra"}}` + "\n" +
			`data: {"type": "completion", "message": "Solution complete!", "progress": 100}` + "\n"
		body := &chunkReader{chunks: []string{
			full[:17], full[17:45], full[45:46], full[46:],
		}}
		s := New(context.Background(), body, Options{})

		envs := collect(t, s)

		require.Len(t, envs, 2)
		assert.Equal(t, EventStepGenerated, envs[0].Type)
		assert.Equal(t, EventCompletion, envs[1].Type)
	})

	t.Run("skips malformed frames and keeps reading", func(t *testing.T) {
		body := strings.Join([]string{
			`data: {"type": "connected", "session_id": "abc"}`,
			`data: {not json at all`,
			`data: {"type": "error", "message": "boom"}`,
		}, "\n") + "\n"
		s := New(context.Background(), io.NopCloser(strings.NewReader(body)), Options{})

		envs := collect(t, s)

		require.Len(t, envs, 2)
		assert.Equal(t, EventConnected, envs[0].Type)
		assert.Equal(t, EventError, envs[1].Type)
		assert.NoError(t, s.Err())
	})

	t.Run("ignores non-data lines", func(t *testing.T) {
		body := strings.Join([]string{
			`: keepalive`,
			`event: message`,
			`data:{"type": "connected"}`,
			`data: `,
			`data: {"type": "connected", "session_id": "abc"}`,
		}, "\n") + "\n"
		s := New(context.Background(), io.NopCloser(strings.NewReader(body)), Options{})

		envs := collect(t, s)

		require.Len(t, envs, 1)
		assert.Equal(t, EventConnected, envs[0].Type)
	})
}

func TestStreamCancel(t *testing.T) {
	t.Run("cancel before any event yields an empty closed channel", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		s := New(context.Background(), pr, Options{})

		s.Cancel()

		envs := collect(t, s)
		assert.Empty(t, envs)
		assert.NoError(t, s.Err())
	})

	t.Run("cancel mid-stream closes the channel without error", func(t *testing.T) {
		pr, pw := io.Pipe()
		s := New(context.Background(), pr, Options{})

		go func() {
			_, _ = pw.Write([]byte(`data: {"type": "connected", "session_id": "abc"}` + "\n"))
		}()

		select {
		case env := <-s.Events():
			assert.Equal(t, EventConnected, env.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for first envelope")
		}

		s.Cancel()
		s.Cancel()

		envs := collect(t, s)
		assert.Empty(t, envs)
		assert.NoError(t, s.Err())
	})

	t.Run("context cancellation stops the stream", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		pr, pw := io.Pipe()
		defer pw.Close()
		s := New(ctx, pr, Options{})

		cancel()

		envs := collect(t, s)
		assert.Empty(t, envs)
		assert.NoError(t, s.Err())
	})
}

func TestStreamFailure(t *testing.T) {
	t.Run("transport error is surfaced after the channel closes", func(t *testing.T) {
		boom := errors.New("connection reset")
		body := io.NopCloser(io.MultiReader(
			strings.NewReader(`data: {"type": "connected"}`+"\n"),
			&failingReader{err: boom},
		))
		s := New(context.Background(), body, Options{})

		envs := collect(t, s)

		require.Len(t, envs, 1)
		assert.ErrorIs(t, s.Err(), boom)
	})

	t.Run("idle timeout cancels the stream", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer pw.Close()
		s := New(context.Background(), pr, Options{IdleTimeout: 25 * time.Millisecond})

		envs := collect(t, s)

		assert.Empty(t, envs)
		assert.ErrorIs(t, s.Err(), ErrIdleTimeout)
	})

	t.Run("idle timeout rearms while bytes flow", func(t *testing.T) {
		pr, pw := io.Pipe()
		s := New(context.Background(), pr, Options{IdleTimeout: 200 * time.Millisecond})

		go func() {
			for i := 0; i < 3; i++ {
				_, _ = pw.Write([]byte(`data: {"type": "routing"}` + "\n"))
				time.Sleep(50 * time.Millisecond)
			}
			pw.Close()
		}()

		envs := collect(t, s)

		assert.Len(t, envs, 3)
		assert.NoError(t, s.Err())
	})
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
