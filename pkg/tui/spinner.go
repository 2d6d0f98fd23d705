package tui

import "github.com/gdamore/tcell/v2"

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerComponent is the streaming activity indicator shown at the bottom of
// the transcript.
type SpinnerComponent struct {
	IsVisible bool
	Frame     int
	Style     tcell.Style
}

func NewSpinnerComponent() SpinnerComponent {
	return SpinnerComponent{
		IsVisible: false,
		Frame:     0,
		Style:     tcell.StyleDefault.Foreground(ColorDimText),
	}
}

func (sc SpinnerComponent) WithVisibility(visible bool) SpinnerComponent {
	next := sc
	next.IsVisible = visible
	if visible && !sc.IsVisible {
		next.Frame = 0
	}
	return next
}

func (sc SpinnerComponent) NextFrame() SpinnerComponent {
	if !sc.IsVisible {
		return sc
	}
	next := sc
	next.Frame = (sc.Frame + 1) % len(spinnerFrames)
	return next
}

func (sc SpinnerComponent) CurrentFrame() string {
	if !sc.IsVisible {
		return ""
	}
	return spinnerFrames[sc.Frame]
}
