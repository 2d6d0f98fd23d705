package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

func lineTexts(lines []styledLine) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}

func hasLine(lines []styledLine, text string) bool {
	for _, l := range lines {
		if l.Text == text {
			return true
		}
	}
	return false
}

func testTimestamp() time.Time {
	return time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
}

func TestMessageLines(t *testing.T) {
	t.Run("should prefix messages with time and role", func(t *testing.T) {
		msg := chat.Message{Role: chat.RoleUser, Text: "what is 2+2", Timestamp: testTimestamp()}

		lines := MessageLines([]chat.Message{msg}, 80)

		require.NotEmpty(t, lines)
		assert.Equal(t, "[09:30] You: what is 2+2", lines[0].Text)
		assert.Equal(t, StyleUserText, lines[0].Style)
	})

	t.Run("should separate messages with a blank row", func(t *testing.T) {
		msgs := []chat.Message{
			{Role: chat.RoleUser, Text: "one", Timestamp: testTimestamp()},
			{Role: chat.RoleAssistant, Text: "two", Timestamp: testTimestamp()},
		}

		lines := MessageLines(msgs, 80)

		require.GreaterOrEqual(t, len(lines), 3)
		assert.Equal(t, "", lines[1].Text)
	})

	t.Run("should style error messages", func(t *testing.T) {
		msg := chat.Message{
			Role:      chat.RoleAssistant,
			Text:      "Sorry, I encountered an error: solver exploded",
			IsError:   true,
			Timestamp: testTimestamp(),
		}

		lines := MessageLines([]chat.Message{msg}, 120)

		require.NotEmpty(t, lines)
		assert.Equal(t, StyleErrorText, lines[0].Style)
	})

	t.Run("should show a progress bar and steps while streaming", func(t *testing.T) {
		msg := chat.Message{
			Role:               chat.RoleAssistant,
			Text:               "Analyzing your question...",
			StreamingSessionID: "sess-1",
			Progress:           50,
			Steps:              []chat.SolutionStep{{Step: 1, Text: "Parsing the question"}},
			Timestamp:          testTimestamp(),
		}

		lines := MessageLines([]chat.Message{msg}, 100)
		texts := lineTexts(lines)

		bar := strings.Repeat("█", 10) + strings.Repeat("░", 10) + " 50%"
		assert.Contains(t, texts, bar)
		assert.Contains(t, texts, "1. Parsing the question")
	})

	t.Run("should render the solution block", func(t *testing.T) {
		msg := chat.Message{
			Role:      chat.RoleAssistant,
			Text:      "Here is the worked solution.",
			Timestamp: testTimestamp(),
			Solution: &chat.Solution{
				Route:       "knowledge_base",
				Confidence:  0.92,
				FinalAnswer: "x = 4",
				Steps: []chat.SolutionStep{
					{Step: 1, Text: "Subtract 3 from both sides"},
					{Step: 2, Text: "Divide both sides by 2"},
				},
				FollowUpSuggestions: []string{"Try 3x+1=10"},
			},
		}

		lines := MessageLines([]chat.Message{msg}, 100)

		assert.True(t, hasLine(lines, "[knowledge_base 92%]"))
		assert.True(t, hasLine(lines, "1. Subtract 3 from both sides"))
		assert.True(t, hasLine(lines, "2. Divide both sides by 2"))
		assert.True(t, hasLine(lines, "Answer: x = 4"))
		assert.True(t, hasLine(lines, "• Try 3x+1=10"))
		assert.True(t, hasLine(lines, "/rate 1-5 to rate this solution"))
	})

	t.Run("should show the rating once submitted", func(t *testing.T) {
		msg := chat.Message{
			Role:      chat.RoleAssistant,
			Text:      "done",
			Timestamp: testTimestamp(),
			Solution:  &chat.Solution{Route: "web_search", Confidence: 0.5, FinalAnswer: "42"},
			Feedback:  chat.FeedbackState{Submitted: true, Rating: 4},
		}

		lines := MessageLines([]chat.Message{msg}, 100)

		assert.True(t, hasLine(lines, "[web_search 50%]"))
		assert.True(t, hasLine(lines, "rated 4/5"))
		assert.False(t, hasLine(lines, "/rate 1-5 to rate this solution"))
	})

	t.Run("should number steps positionally when unset", func(t *testing.T) {
		msg := chat.Message{
			Role:      chat.RoleAssistant,
			Text:      "done",
			Timestamp: testTimestamp(),
			Solution: &chat.Solution{
				Route:      "builtin",
				Confidence: 1,
				Steps: []chat.SolutionStep{
					{Text: "first"},
					{Text: "second"},
				},
			},
		}

		lines := MessageLines([]chat.Message{msg}, 100)

		assert.True(t, hasLine(lines, "1. first"))
		assert.True(t, hasLine(lines, "2. second"))
	})

	t.Run("should wrap long text under the prefix", func(t *testing.T) {
		msg := chat.Message{
			Role:      chat.RoleUser,
			Text:      strings.Repeat("solve this equation ", 5),
			Timestamp: testTimestamp(),
		}

		lines := MessageLines([]chat.Message{msg}, 40)

		require.Greater(t, len(lines), 1)
		assert.Equal(t, 0, lines[0].Indent)
		assert.Equal(t, len("[09:30] You: "), lines[1].Indent)
	})

	t.Run("should return nothing for a zero width", func(t *testing.T) {
		msg := chat.Message{Role: chat.RoleUser, Text: "hi", Timestamp: testTimestamp()}
		assert.Nil(t, MessageLines([]chat.Message{msg}, 0))
	})
}

func TestProgressLine(t *testing.T) {
	t.Run("should clamp out-of-range progress", func(t *testing.T) {
		assert.Equal(t, strings.Repeat("░", transcriptBarWidth)+" 0%", progressLine(-5))
		assert.Equal(t, strings.Repeat("█", transcriptBarWidth)+" 100%", progressLine(250))
	})

	t.Run("should fill proportionally", func(t *testing.T) {
		line := progressLine(25)
		assert.Equal(t, 5, strings.Count(line, "█"))
		assert.Equal(t, 15, strings.Count(line, "░"))
		assert.True(t, strings.HasSuffix(line, " 25%"))
	})
}
