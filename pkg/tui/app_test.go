package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwisehq/stepwise/pkg/solver"
)

// newTestApp builds an app with no screen and a client pointing nowhere.
// Command parsing and local state changes never touch the network.
func newTestApp() *App {
	client := solver.NewClient("http://127.0.0.1:1")
	return New(client, "http://127.0.0.1:1")
}

func TestRunCommand(t *testing.T) {
	t.Run("should quit on /quit", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/quit")
		assert.True(t, app.quitting)
	})

	t.Run("should quit on /exit", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/exit")
		assert.True(t, app.quitting)
	})

	t.Run("should open the help modal", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/help")

		assert.True(t, app.modal.Visible)
		assert.Equal(t, "Commands", app.modal.Title)
	})

	t.Run("should flash usage when rate has no arguments", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/rate")
		assert.Contains(t, app.status.Flash, "usage: /rate")
	})

	t.Run("should flash usage when the rating is not a number", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/rate great")
		assert.Contains(t, app.status.Flash, "usage: /rate")
	})

	t.Run("should start a fresh conversation on /clear", func(t *testing.T) {
		app := newTestApp()
		oldStore := app.store
		oldSession := app.manager.SessionID()

		app.runCommand("/clear")

		assert.NotSame(t, oldStore, app.store)
		assert.NotEqual(t, oldSession, app.manager.SessionID())
		assert.Empty(t, app.messages.Messages)
		assert.Contains(t, app.status.Flash, "new conversation")
	})

	t.Run("should save the transcript to the given path", func(t *testing.T) {
		app := newTestApp()
		path := filepath.Join(t.TempDir(), "transcript.json")

		app.runCommand("/save " + path)

		_, err := os.Stat(path)
		require.NoError(t, err)
		assert.Contains(t, app.status.Flash, "saved transcript")
	})

	t.Run("should flash on unknown commands", func(t *testing.T) {
		app := newTestApp()
		app.runCommand("/frobnicate")
		assert.Contains(t, app.status.Flash, "unknown command /frobnicate")
	})
}

func TestSubmit(t *testing.T) {
	t.Run("should ignore blank input", func(t *testing.T) {
		app := newTestApp()
		app.input = app.input.WithContent("   ")

		app.submit()

		assert.Equal(t, "", app.input.Content)
		assert.Equal(t, 0, app.store.Len())
	})

	t.Run("should clear the input before running a command", func(t *testing.T) {
		app := newTestApp()
		app.input = app.input.WithContent("/help")

		app.submit()

		assert.Equal(t, "", app.input.Content)
		assert.True(t, app.modal.Visible)
	})
}

func TestHandleKeyEvent(t *testing.T) {
	key := func(k tcell.Key, r rune) *tcell.EventKey {
		return tcell.NewEventKey(k, r, tcell.ModNone)
	}

	t.Run("should type into the input field", func(t *testing.T) {
		app := newTestApp()
		for _, r := range "2x+3" {
			app.handleKeyEvent(key(tcell.KeyRune, r))
		}
		assert.Equal(t, "2x+3", app.input.Content)
	})

	t.Run("should edit with backspace and cursor keys", func(t *testing.T) {
		app := newTestApp()
		for _, r := range "145" {
			app.handleKeyEvent(key(tcell.KeyRune, r))
		}
		app.handleKeyEvent(key(tcell.KeyLeft, 0))
		app.handleKeyEvent(key(tcell.KeyBackspace2, 0))

		assert.Equal(t, "15", app.input.Content)

		app.handleKeyEvent(key(tcell.KeyHome, 0))
		assert.Equal(t, 0, app.input.Cursor)
		app.handleKeyEvent(key(tcell.KeyEnd, 0))
		assert.Equal(t, 2, app.input.Cursor)
	})

	t.Run("should quit on ctrl-c", func(t *testing.T) {
		app := newTestApp()
		app.handleKeyEvent(key(tcell.KeyCtrlC, 0))
		assert.True(t, app.quitting)
	})

	t.Run("should keep following the tail when scrolled past the end", func(t *testing.T) {
		app := newTestApp()
		app.width, app.height = 80, 24
		app.syncComponents()

		app.handleKeyEvent(key(tcell.KeyPgDn, 0))

		assert.True(t, app.messages.Follow)
		assert.Equal(t, 0, app.messages.Scroll)
	})
}
