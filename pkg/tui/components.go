package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/stepwisehq/stepwise/pkg/chat"
)

// MessageDisplay holds the transcript state: the message snapshot being
// rendered plus scroll position. Follow keeps the view pinned to the newest
// line while streaming.
type MessageDisplay struct {
	Messages []chat.Message
	Width    int
	Height   int
	Scroll   int
	Follow   bool
}

func NewMessageDisplay(width, height int) MessageDisplay {
	return MessageDisplay{
		Messages: []chat.Message{},
		Width:    width,
		Height:   height,
		Scroll:   0,
		Follow:   true,
	}
}

func (md MessageDisplay) WithMessages(messages []chat.Message) MessageDisplay {
	return MessageDisplay{
		Messages: messages,
		Width:    md.Width,
		Height:   md.Height,
		Scroll:   md.Scroll,
		Follow:   md.Follow,
	}
}

func (md MessageDisplay) WithSize(width, height int) MessageDisplay {
	return MessageDisplay{
		Messages: md.Messages,
		Width:    width,
		Height:   height,
		Scroll:   md.Scroll,
		Follow:   md.Follow,
	}
}

func (md MessageDisplay) WithScroll(scroll int) MessageDisplay {
	if scroll < 0 {
		scroll = 0
	}
	return MessageDisplay{
		Messages: md.Messages,
		Width:    md.Width,
		Height:   md.Height,
		Scroll:   scroll,
		Follow:   md.Follow,
	}
}

func (md MessageDisplay) WithFollow(follow bool) MessageDisplay {
	return MessageDisplay{
		Messages: md.Messages,
		Width:    md.Width,
		Height:   md.Height,
		Scroll:   md.Scroll,
		Follow:   follow,
	}
}

// InputField is the single-line editor at the bottom of the shell.
// Cursor is a rune offset into Content.
type InputField struct {
	Content string
	Cursor  int
	Width   int
}

func NewInputField(width int) InputField {
	return InputField{Content: "", Cursor: 0, Width: width}
}

func (inf InputField) WithContent(content string) InputField {
	cursor := inf.Cursor
	if max := len([]rune(content)); cursor > max {
		cursor = max
	}
	return InputField{Content: content, Cursor: cursor, Width: inf.Width}
}

func (inf InputField) WithCursor(cursor int) InputField {
	if cursor < 0 {
		cursor = 0
	}
	if max := len([]rune(inf.Content)); cursor > max {
		cursor = max
	}
	return InputField{Content: inf.Content, Cursor: cursor, Width: inf.Width}
}

func (inf InputField) CursorEnd() InputField {
	return inf.WithCursor(len([]rune(inf.Content)))
}

func (inf InputField) WithWidth(width int) InputField {
	return InputField{Content: inf.Content, Cursor: inf.Cursor, Width: width}
}

func (inf InputField) InsertRune(r rune) InputField {
	runes := []rune(inf.Content)
	next := make([]rune, 0, len(runes)+1)
	next = append(next, runes[:inf.Cursor]...)
	next = append(next, r)
	next = append(next, runes[inf.Cursor:]...)
	return InputField{
		Content: string(next),
		Cursor:  inf.Cursor + 1,
		Width:   inf.Width,
	}
}

func (inf InputField) DeleteBackward() InputField {
	if inf.Cursor == 0 {
		return inf
	}
	runes := []rune(inf.Content)
	next := make([]rune, 0, len(runes)-1)
	next = append(next, runes[:inf.Cursor-1]...)
	next = append(next, runes[inf.Cursor:]...)
	return InputField{
		Content: string(next),
		Cursor:  inf.Cursor - 1,
		Width:   inf.Width,
	}
}

func (inf InputField) Clear() InputField {
	return InputField{Content: "", Cursor: 0, Width: inf.Width}
}

// StatusBar summarizes the connection and the live session. Flash text
// temporarily replaces the session summary, used for command feedback.
type StatusBar struct {
	Server   string
	Session  string
	Active   bool
	Progress int
	Flash    string
	Width    int
}

func NewStatusBar(width int) StatusBar {
	return StatusBar{Width: width}
}

func (sb StatusBar) WithServer(server string) StatusBar {
	next := sb
	next.Server = server
	return next
}

func (sb StatusBar) WithSession(session string) StatusBar {
	next := sb
	next.Session = session
	return next
}

func (sb StatusBar) WithActivity(active bool, progress int) StatusBar {
	next := sb
	next.Active = active
	next.Progress = progress
	return next
}

func (sb StatusBar) WithFlash(flash string) StatusBar {
	next := sb
	next.Flash = flash
	return next
}

func (sb StatusBar) WithWidth(width int) StatusBar {
	next := sb
	next.Width = width
	return next
}

// ReportModal shows a multi-line report (stats, health, help) centered over
// the transcript, dismissed by any key.
type ReportModal struct {
	Visible bool
	Title   string
	Lines   []string
	Width   int
	Height  int
}

func NewReportModal() ReportModal {
	return ReportModal{Width: 60, Height: 14}
}

func (rm ReportModal) Show(title, body string) ReportModal {
	return ReportModal{
		Visible: true,
		Title:   title,
		Lines:   strings.Split(body, "\n"),
		Width:   rm.Width,
		Height:  rm.Height,
	}
}

func (rm ReportModal) Hide() ReportModal {
	next := rm
	next.Visible = false
	return next
}

// HandleKeyEvent dismisses the modal on any key press. Returns the updated
// modal and whether the event was consumed.
func (rm ReportModal) HandleKeyEvent(_ *tcell.EventKey) (ReportModal, bool) {
	if !rm.Visible {
		return rm, false
	}
	return rm.Hide(), true
}

func (rm ReportModal) Render(screen tcell.Screen, area Rect) {
	if !rm.Visible {
		return
	}

	modalWidth := rm.Width
	modalHeight := rm.Height
	if modalWidth > area.Width-4 {
		modalWidth = area.Width - 4
	}
	if modalHeight > area.Height-2 {
		modalHeight = area.Height - 2
	}
	if modalWidth < 10 || modalHeight < 4 {
		return
	}

	modal := Rect{
		X:      area.X + (area.Width-modalWidth)/2,
		Y:      area.Y + (area.Height-modalHeight)/2,
		Width:  modalWidth,
		Height: modalHeight,
	}

	clearArea(screen, modal)
	drawBorder(screen, modal, StyleModalBorder)

	if rm.Title != "" {
		titleX := modal.X + (modal.Width-len(rm.Title))/2
		if titleX < modal.X+1 {
			titleX = modal.X + 1
		}
		renderTextWithLimit(screen, titleX, modal.Y+1, modal.Width-2, rm.Title, StyleModalTitle)
	}

	bodyTop := modal.Y + 3
	bodyHeight := modal.Height - 5
	y := bodyTop
	for _, line := range rm.Lines {
		for _, wrapped := range WrapText(line, modal.Width-4) {
			if y >= bodyTop+bodyHeight {
				break
			}
			renderTextWithLimit(screen, modal.X+2, y, modal.Width-4, wrapped, tcell.StyleDefault)
			y++
		}
		if line == "" && y < bodyTop+bodyHeight {
			y++
		}
	}

	instruction := "Press any key to continue"
	instrX := modal.X + (modal.Width-len(instruction))/2
	if instrX < modal.X+1 {
		instrX = modal.X + 1
	}
	renderTextWithLimit(screen, instrX, modal.Y+modal.Height-2, modal.Width-2, instruction, StyleDimText)
}
