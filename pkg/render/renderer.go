package render

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/stepwisehq/stepwise/pkg/chat"
	"github.com/stepwisehq/stepwise/pkg/solver"
)

const (
	minWidth         = 24
	progressBarWidth = 24
)

// Renderer turns messages, solutions and stats into terminal strings. It never
// mutates what it is handed; plain mode drops all ANSI styling so output stays
// pipe-safe.
type Renderer struct {
	styles    *Styles
	width     int
	plain     bool
	formatter chroma.Formatter
}

// New creates a renderer for the given terminal width. plain disables colors
// and syntax highlighting.
func New(width int, plain bool) *Renderer {
	if width < minWidth {
		width = minWidth
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Renderer{
		styles:    DefaultStyles(),
		width:     width,
		plain:     plain,
		formatter: formatter,
	}
}

// RenderMessage renders one conversation turn, including any streaming
// progress or attached solution.
func (r *Renderer) RenderMessage(msg chat.Message) string {
	var b strings.Builder

	switch {
	case msg.IsUser():
		b.WriteString(r.sty(r.styles.UserLabel, "You"))
		b.WriteString(": ")
		b.WriteString(msg.Text)

	case msg.IsError:
		b.WriteString(r.sty(r.styles.AssistantLabel, "Solver"))
		b.WriteString(": ")
		b.WriteString(r.sty(r.styles.ErrorText, msg.Text))

	case msg.Solution != nil:
		b.WriteString(r.sty(r.styles.AssistantLabel, "Solver"))
		b.WriteString(":\n")
		b.WriteString(r.RenderSolution(msg.Solution))
		if msg.Feedback.Submitted {
			b.WriteString("\n")
			b.WriteString(r.sty(r.styles.Muted, fmt.Sprintf("rated %d/5", msg.Feedback.Rating)))
		}

	default:
		// Still streaming, or ended without a structured result.
		b.WriteString(r.sty(r.styles.AssistantLabel, "Solver"))
		b.WriteString(": ")
		b.WriteString(msg.Text)
		if msg.IsStreaming() {
			b.WriteString("\n")
			b.WriteString(r.RenderProgress(msg.Progress))
			if len(msg.Steps) > 0 {
				b.WriteString("\n")
				b.WriteString(r.RenderSteps(msg.Steps))
			}
		}
	}

	return b.String()
}

// RenderSolution renders a structured solution: route badge, worked steps,
// final answer panel, conversational response and follow-up suggestions.
func (r *Renderer) RenderSolution(sol *chat.Solution) string {
	if sol == nil {
		return ""
	}

	var parts []string

	badge := fmt.Sprintf("[%s %d%%]", sol.Route, int(sol.Confidence*100+0.5))
	parts = append(parts, r.sty(r.styles.RouteBadge, badge))

	if sol.ConversationalResponse != "" {
		parts = append(parts, r.renderBody(sol.ConversationalResponse))
	}

	if len(sol.Steps) > 0 {
		parts = append(parts, r.RenderSteps(sol.Steps))
	}

	if sol.FinalAnswer != "" {
		answer := r.sty(r.styles.AnswerText, "Answer: "+sol.FinalAnswer)
		if r.plain {
			parts = append(parts, answer)
		} else {
			panelWidth := r.width - 4
			if panelWidth < minWidth {
				panelWidth = minWidth
			}
			parts = append(parts, r.styles.AnswerPanel.Width(panelWidth).Render(answer))
		}
	}

	if len(sol.FollowUpSuggestions) > 0 {
		var b strings.Builder
		b.WriteString(r.sty(r.styles.Muted, "Try next:"))
		for _, s := range sol.FollowUpSuggestions {
			b.WriteString("\n  ")
			b.WriteString(r.sty(r.styles.FollowUp, "• "+s))
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n")
}

// RenderSteps renders worked steps as a numbered list.
func (r *Renderer) RenderSteps(steps []chat.SolutionStep) string {
	var b strings.Builder
	for i, step := range steps {
		if i > 0 {
			b.WriteString("\n")
		}
		num := step.Step
		if num == 0 {
			num = i + 1
		}
		b.WriteString("  ")
		b.WriteString(r.sty(r.styles.StepNumber, fmt.Sprintf("%d.", num)))
		b.WriteString(" ")
		b.WriteString(r.sty(r.styles.StepText, step.Text))
	}
	return b.String()
}

// RenderProgress renders a progress bar like `[████░░░░] 42%`.
func (r *Renderer) RenderProgress(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	filled := progress * progressBarWidth / 100
	fill := strings.Repeat("█", filled)
	empty := strings.Repeat("░", progressBarWidth-filled)

	return fmt.Sprintf("[%s%s] %d%%",
		r.sty(r.styles.ProgressFill, fill),
		r.sty(r.styles.ProgressEmpty, empty),
		progress)
}

// RenderStats renders the learning stats report.
func (r *Renderer) RenderStats(st *solver.LearningStats) string {
	if st == nil {
		return ""
	}
	if st.Status == "no_feedback" {
		return r.sty(r.styles.Muted, st.Message)
	}

	var b strings.Builder
	b.WriteString(r.sty(r.styles.Header, "Learning stats"))
	b.WriteString("\n")
	b.WriteString(r.statRow("total feedback", fmt.Sprintf("%d", st.TotalFeedback)))
	b.WriteString(r.statRow("average rating", fmt.Sprintf("%.2f", st.AverageRating)))
	b.WriteString(r.statRow("kb accuracy", fmt.Sprintf("%.2f", st.KBAccuracy)))
	b.WriteString(r.statRow("web accuracy", fmt.Sprintf("%.2f", st.WebAccuracy)))
	b.WriteString(r.statRow("low ratings", fmt.Sprintf("%d", st.LowRatings)))
	b.WriteString(r.statRow("high ratings", fmt.Sprintf("%d", st.HighRatings)))
	b.WriteString(r.statRow("learning", st.LearningStatus))
	return strings.TrimRight(b.String(), "\n")
}

// RenderHealth renders the health report.
func (r *Renderer) RenderHealth(h *solver.Health) string {
	if h == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(r.sty(r.styles.Header, "Solver health"))
	b.WriteString("\n")
	b.WriteString(r.statRow("status", h.Status))
	b.WriteString(r.statRow("streaming", h.Streaming))
	b.WriteString(r.statRow("conversations", fmt.Sprintf("%d", h.ActiveConversations)))
	b.WriteString(r.statRow("stored messages", fmt.Sprintf("%d", h.TotalStoredMessages)))
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) statRow(label, value string) string {
	return fmt.Sprintf("  %s %s\n", r.sty(r.styles.Muted, fmt.Sprintf("%-16s", label)), value)
}

// renderBody renders free-form response text, syntax-highlighting fenced code
// blocks.
func (r *Renderer) renderBody(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	var out []string
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			out = append(out, line)
			continue
		}

		language := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
		var code []string
		i++
		for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			code = append(code, lines[i])
			i++
		}
		out = append(out, r.highlightCode(strings.Join(code, "\n"), language))
	}

	return strings.Join(out, "\n")
}

// highlightCode applies chroma highlighting, falling back to the raw content
// when the code cannot be tokenized.
func (r *Renderer) highlightCode(content, language string) string {
	if r.plain || content == "" {
		return content
	}

	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}

	var buf strings.Builder
	if err := r.formatter.Format(&buf, styles.Get("monokai"), iterator); err != nil {
		return content
	}
	return strings.TrimRight(buf.String(), "\n")
}

// sty applies a lipgloss style unless the renderer is in plain mode.
func (r *Renderer) sty(style lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return style.Render(text)
}
