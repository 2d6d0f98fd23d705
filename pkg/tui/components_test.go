package tui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

func TestInputField(t *testing.T) {
	t.Run("should insert runes at the cursor", func(t *testing.T) {
		field := NewInputField(40)
		field = field.InsertRune('a').InsertRune('c')
		field = field.WithCursor(1)
		field = field.InsertRune('b')

		assert.Equal(t, "abc", field.Content)
		assert.Equal(t, 2, field.Cursor)
	})

	t.Run("should delete the rune before the cursor", func(t *testing.T) {
		field := NewInputField(40).WithContent("solve").CursorEnd()
		field = field.DeleteBackward()

		assert.Equal(t, "solv", field.Content)
		assert.Equal(t, 4, field.Cursor)
	})

	t.Run("should ignore delete at the start", func(t *testing.T) {
		field := NewInputField(40).WithContent("x").WithCursor(0)
		field = field.DeleteBackward()

		assert.Equal(t, "x", field.Content)
		assert.Equal(t, 0, field.Cursor)
	})

	t.Run("should handle multibyte runes as single cursor steps", func(t *testing.T) {
		field := NewInputField(40)
		for _, r := range "2×π" {
			field = field.InsertRune(r)
		}
		assert.Equal(t, "2×π", field.Content)
		assert.Equal(t, 3, field.Cursor)

		field = field.DeleteBackward()
		assert.Equal(t, "2×", field.Content)
		assert.Equal(t, 2, field.Cursor)
	})

	t.Run("should clamp the cursor to the content", func(t *testing.T) {
		field := NewInputField(40).WithContent("hi")

		assert.Equal(t, 0, field.WithCursor(-3).Cursor)
		assert.Equal(t, 2, field.WithCursor(99).Cursor)
	})

	t.Run("should clear content and cursor but keep the width", func(t *testing.T) {
		field := NewInputField(33).WithContent("leftover").CursorEnd().Clear()

		assert.Equal(t, "", field.Content)
		assert.Equal(t, 0, field.Cursor)
		assert.Equal(t, 33, field.Width)
	})
}

func TestMessageDisplay(t *testing.T) {
	t.Run("should follow the tail by default", func(t *testing.T) {
		display := NewMessageDisplay(80, 20)
		assert.True(t, display.Follow)
	})

	t.Run("should clamp scroll at zero", func(t *testing.T) {
		display := NewMessageDisplay(80, 20).WithScroll(-5)
		assert.Equal(t, 0, display.Scroll)
	})

	t.Run("should replace messages without touching the viewport", func(t *testing.T) {
		display := NewMessageDisplay(80, 20).WithScroll(3).WithFollow(false)
		display = display.WithMessages([]chat.Message{chat.NewUserMessage("what is 2+2")})

		assert.Len(t, display.Messages, 1)
		assert.Equal(t, 3, display.Scroll)
		assert.False(t, display.Follow)
	})
}

func TestStatusBar(t *testing.T) {
	t.Run("should carry activity and progress together", func(t *testing.T) {
		bar := NewStatusBar(80).WithActivity(true, 40)

		assert.True(t, bar.Active)
		assert.Equal(t, 40, bar.Progress)
	})

	t.Run("should replace flash text", func(t *testing.T) {
		bar := NewStatusBar(80).WithFlash("saved")
		assert.Equal(t, "saved", bar.Flash)

		bar = bar.WithFlash("")
		assert.Equal(t, "", bar.Flash)
	})
}

func TestSpinnerComponent(t *testing.T) {
	t.Run("should restart the animation when shown", func(t *testing.T) {
		spinner := NewSpinnerComponent().WithVisibility(true)
		spinner = spinner.NextFrame().NextFrame()
		spinner = spinner.WithVisibility(false).WithVisibility(true)

		assert.Equal(t, spinnerFrames[0], spinner.CurrentFrame())
	})

	t.Run("should cycle through all frames", func(t *testing.T) {
		spinner := NewSpinnerComponent().WithVisibility(true)
		for i := 0; i < len(spinnerFrames); i++ {
			assert.Equal(t, spinnerFrames[i], spinner.CurrentFrame())
			spinner = spinner.NextFrame()
		}
		assert.Equal(t, spinnerFrames[0], spinner.CurrentFrame())
	})
}

func TestReportModal(t *testing.T) {
	t.Run("should split the body into lines", func(t *testing.T) {
		modal := NewReportModal().Show("Learning stats", "Total feedback  3\nAverage rating  4.0")

		assert.True(t, modal.Visible)
		assert.Equal(t, "Learning stats", modal.Title)
		assert.Equal(t, []string{"Total feedback  3", "Average rating  4.0"}, modal.Lines)
	})

	t.Run("should dismiss on any key and consume it", func(t *testing.T) {
		modal := NewReportModal().Show("Server health", "status healthy")

		next, consumed := modal.HandleKeyEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
		assert.True(t, consumed)
		assert.False(t, next.Visible)
	})

	t.Run("should not consume keys while hidden", func(t *testing.T) {
		modal := NewReportModal()

		next, consumed := modal.HandleKeyEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
		assert.False(t, consumed)
		assert.False(t, next.Visible)
	})
}
