package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

const transcriptBarWidth = 20

// styledLine is one transcript row with its style and indentation.
type styledLine struct {
	Text   string
	Style  tcell.Style
	Indent int
}

// MessageLines flattens the message log into renderable transcript rows:
// role-prefixed wrapped text, streaming progress, step lists and the solution
// block for completed turns.
func MessageLines(messages []chat.Message, width int) []styledLine {
	if width <= 0 {
		return nil
	}

	var lines []styledLine
	for i, msg := range messages {
		if i > 0 {
			lines = append(lines, styledLine{})
		}
		lines = append(lines, messageLines(msg, width)...)
	}
	return lines
}

func messageLines(msg chat.Message, width int) []styledLine {
	label := roleLabel(msg.Role)
	prefix := fmt.Sprintf("[%s] %s: ", msg.Timestamp.Format("15:04"), label)

	textStyle := StyleAssistantText
	if msg.IsUser() {
		textStyle = StyleUserText
	}
	if msg.IsError {
		textStyle = StyleErrorText
	}

	var lines []styledLine

	contentWidth := width - len(prefix)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := WrapText(msg.Text, contentWidth)
	if len(wrapped) == 0 {
		wrapped = []string{""}
	}
	lines = append(lines, styledLine{Text: prefix + wrapped[0], Style: textStyle})
	for _, cont := range wrapped[1:] {
		lines = append(lines, styledLine{Text: cont, Style: textStyle, Indent: len(prefix)})
	}

	if msg.IsStreaming() {
		lines = append(lines, styledLine{
			Text:   progressLine(msg.Progress),
			Style:  StyleProgressFill,
			Indent: 2,
		})
		lines = append(lines, stepLines(msg.Steps, width)...)
		return lines
	}

	if msg.Solution != nil {
		sol := msg.Solution
		badge := fmt.Sprintf("[%s %d%%]", sol.Route, int(sol.Confidence*100+0.5))
		lines = append(lines, styledLine{Text: badge, Style: StyleRouteBadge, Indent: 2})
		lines = append(lines, stepLines(sol.Steps, width)...)
		if sol.FinalAnswer != "" {
			lines = append(lines, styledLine{
				Text:   "Answer: " + sol.FinalAnswer,
				Style:  StyleAnswer,
				Indent: 2,
			})
		}
		for _, s := range sol.FollowUpSuggestions {
			lines = append(lines, styledLine{Text: "• " + s, Style: StyleDimText, Indent: 4})
		}
		if msg.Feedback.Submitted {
			lines = append(lines, styledLine{
				Text:   fmt.Sprintf("rated %d/5", msg.Feedback.Rating),
				Style:  StyleDimText,
				Indent: 2,
			})
		} else {
			lines = append(lines, styledLine{
				Text:   "/rate 1-5 to rate this solution",
				Style:  StyleDimText,
				Indent: 2,
			})
		}
	}

	return lines
}

func stepLines(steps []chat.SolutionStep, width int) []styledLine {
	var lines []styledLine
	for i, step := range steps {
		num := step.Step
		if num == 0 {
			num = i + 1
		}
		text := fmt.Sprintf("%d. %s", num, step.Text)
		for j, wrapped := range WrapText(text, width-4) {
			indent := 2
			if j > 0 {
				indent = 5
			}
			lines = append(lines, styledLine{Text: wrapped, Style: StyleStep, Indent: indent})
		}
	}
	return lines
}

func progressLine(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := progress * transcriptBarWidth / 100
	return fmt.Sprintf("%s%s %d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", transcriptBarWidth-filled),
		progress)
}

// RenderMessages draws the transcript region. When the display is in follow
// mode the newest line is kept visible; otherwise the stored scroll offset
// wins. The spinner occupies the bottom row while visible.
func RenderMessages(screen tcell.Screen, display MessageDisplay, area Rect, spinner SpinnerComponent) {
	if area.Width <= 0 || area.Height <= 0 {
		return
	}

	clearArea(screen, area)

	availableHeight := area.Height
	if spinner.IsVisible {
		availableHeight--
	}

	lines := MessageLines(display.Messages, area.Width)
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	scroll := display.Scroll
	if display.Follow {
		scroll = MaxScroll(len(lines), availableHeight)
	}
	if max := MaxScroll(len(lines), availableHeight); scroll > max {
		scroll = max
	}
	visible := VisibleWindow(texts, availableHeight, scroll)

	for i := range visible {
		line := lines[scroll+i]
		renderText(screen, area.X+line.Indent, area.Y+i, line.Text, line.Style)
	}

	if spinner.IsVisible {
		y := area.Y + area.Height - 1
		renderText(screen, area.X, y, spinner.CurrentFrame(), spinner.Style)
	}
}

// RenderInput draws the bordered input box with a reverse-video cursor.
func RenderInput(screen tcell.Screen, input InputField, area Rect) {
	if area.Width <= 0 || area.Height < 3 {
		return
	}

	clearArea(screen, area)

	for x := area.X; x < area.X+area.Width; x++ {
		screen.SetContent(x, area.Y, '─', nil, StyleBorder)
		screen.SetContent(x, area.Y+2, '─', nil, StyleBorder)
	}
	screen.SetContent(area.X, area.Y, '┌', nil, StyleBorder)
	screen.SetContent(area.X+area.Width-1, area.Y, '┐', nil, StyleBorder)
	screen.SetContent(area.X, area.Y+2, '└', nil, StyleBorder)
	screen.SetContent(area.X+area.Width-1, area.Y+2, '┘', nil, StyleBorder)
	screen.SetContent(area.X, area.Y+1, '│', nil, StyleBorder)
	screen.SetContent(area.X+area.Width-1, area.Y+1, '│', nil, StyleBorder)

	inputX := area.X + 1
	inputY := area.Y + 1
	inputWidth := area.Width - 2
	if inputWidth < 1 {
		return
	}

	runes := []rune(input.Content)
	cursorPos := input.Cursor
	if cursorPos > len(runes) {
		cursorPos = len(runes)
	}
	start := 0
	if cursorPos >= inputWidth {
		start = cursorPos - inputWidth + 1
	}
	end := start + inputWidth
	if end > len(runes) {
		end = len(runes)
	}
	visible := runes[start:end]
	cursorPos -= start

	renderText(screen, inputX, inputY, string(visible), tcell.StyleDefault)

	if cursorPos >= 0 && cursorPos < inputWidth {
		cursorStyle := tcell.StyleDefault.Reverse(true)
		if cursorPos < len(visible) {
			screen.SetContent(inputX+cursorPos, inputY, visible[cursorPos], nil, cursorStyle)
		} else {
			screen.SetContent(inputX+cursorPos, inputY, ' ', nil, cursorStyle)
		}
	}
}

// RenderStatus draws the bottom status bar: server, session, live-session
// state or the current flash message.
func RenderStatus(screen tcell.Screen, status StatusBar, area Rect) {
	if area.Width <= 0 || area.Height <= 0 {
		return
	}

	for x := area.X; x < area.X+area.Width; x++ {
		screen.SetContent(x, area.Y, ' ', nil, StyleStatusBar)
	}

	state := "Ready"
	if status.Active {
		state = fmt.Sprintf("Solving %d%%", status.Progress)
	}
	if status.Flash != "" {
		state = status.Flash
	}

	session := status.Session
	if len(session) > 8 {
		session = session[:8]
	}

	text := fmt.Sprintf(" %s | session %s | %s ", status.Server, session, state)
	if len(text) > area.Width && area.Width > 3 {
		text = text[:area.Width-3] + "..."
	}
	renderTextWithLimit(screen, area.X, area.Y, area.Width, text, StyleStatusBar)
}

func clearArea(screen tcell.Screen, area Rect) {
	for y := area.Y; y < area.Y+area.Height; y++ {
		for x := area.X; x < area.X+area.Width; x++ {
			screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}
}

func renderText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func renderTextWithLimit(screen tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		if i >= maxWidth {
			break
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
}

func drawBorder(screen tcell.Screen, area Rect, style tcell.Style) {
	for x := area.X; x < area.X+area.Width; x++ {
		screen.SetContent(x, area.Y, '─', nil, style)
		screen.SetContent(x, area.Y+area.Height-1, '─', nil, style)
	}
	for y := area.Y; y < area.Y+area.Height; y++ {
		screen.SetContent(area.X, y, '│', nil, style)
		screen.SetContent(area.X+area.Width-1, y, '│', nil, style)
	}
	screen.SetContent(area.X, area.Y, '┌', nil, style)
	screen.SetContent(area.X+area.Width-1, area.Y, '┐', nil, style)
	screen.SetContent(area.X, area.Y+area.Height-1, '└', nil, style)
	screen.SetContent(area.X+area.Width-1, area.Y+area.Height-1, '┘', nil, style)
}

func roleLabel(role string) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "Solver"
	default:
		return role
	}
}
