package render

import (
	"github.com/charmbracelet/lipgloss"
)

// Warm terminal palette shared by every renderer surface.
var (
	ColorUser      = lipgloss.Color("#FFB000") // amber
	ColorAssistant = lipgloss.Color("#00FF87") // mint
	ColorError     = lipgloss.Color("#D95F5F") // muted red
	ColorMuted     = lipgloss.Color("#83715F")
	ColorRoute     = lipgloss.Color("#61AFAF") // cyan
	ColorStep      = lipgloss.Color("#F5B761") // yellow
	ColorAnswer    = lipgloss.Color("#93B56B") // green
	ColorBorder    = lipgloss.Color("#5C5044")
	ColorProgress  = lipgloss.Color("#00BFFF") // deep sky blue
)

// Styles bundles the lipgloss styles the renderer draws with.
type Styles struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorText      lipgloss.Style
	Muted          lipgloss.Style

	RouteBadge lipgloss.Style
	StepNumber lipgloss.Style
	StepText   lipgloss.Style

	AnswerPanel lipgloss.Style
	AnswerText  lipgloss.Style
	FollowUp    lipgloss.Style

	ProgressFill  lipgloss.Style
	ProgressEmpty lipgloss.Style

	Header lipgloss.Style
}

// DefaultStyles returns the renderer's default style set.
func DefaultStyles() *Styles {
	return &Styles{
		UserLabel: lipgloss.NewStyle().
			Foreground(ColorUser).
			Bold(true),

		AssistantLabel: lipgloss.NewStyle().
			Foreground(ColorAssistant).
			Bold(true),

		ErrorText: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),

		RouteBadge: lipgloss.NewStyle().
			Foreground(ColorRoute).
			Bold(true),

		StepNumber: lipgloss.NewStyle().
			Foreground(ColorStep).
			Bold(true),

		StepText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D3B597")),

		AnswerPanel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAnswer).
			Padding(0, 1),

		AnswerText: lipgloss.NewStyle().
			Foreground(ColorAnswer).
			Bold(true),

		FollowUp: lipgloss.NewStyle().
			Foreground(ColorRoute),

		ProgressFill: lipgloss.NewStyle().
			Foreground(ColorProgress),

		ProgressEmpty: lipgloss.NewStyle().
			Foreground(ColorMuted),

		Header: lipgloss.NewStyle().
			Foreground(ColorStep).
			Bold(true),
	}
}
