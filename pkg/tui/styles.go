package tui

import "github.com/gdamore/tcell/v2"

// Color palette for the chat shell.
var (
	ColorUserText      = tcell.NewRGBColor(255, 176, 0)   // amber for the user's turns
	ColorAssistantText = tcell.NewRGBColor(0, 255, 135)   // mint for solver replies
	ColorErrorText     = tcell.NewRGBColor(255, 99, 71)   // tomato for error bubbles
	ColorDimText       = tcell.NewRGBColor(169, 169, 169) // secondary text
	ColorBorder        = tcell.NewRGBColor(255, 215, 0)   // gold input border
	ColorRoute         = tcell.NewRGBColor(97, 175, 175)  // cyan route badge
	ColorStep          = tcell.NewRGBColor(245, 183, 97)  // yellow step numbers
	ColorAnswer        = tcell.NewRGBColor(147, 181, 107) // green final answer
	ColorProgressBar   = tcell.NewRGBColor(0, 191, 255)
	ColorProgressBarBg = tcell.NewRGBColor(105, 105, 105)
)

// Style presets combining colors with text attributes.
var (
	StyleUserText      = tcell.StyleDefault.Foreground(ColorUserText)
	StyleAssistantText = tcell.StyleDefault.Foreground(ColorAssistantText)
	StyleErrorText     = tcell.StyleDefault.Foreground(ColorErrorText).Bold(true)
	StyleDimText       = tcell.StyleDefault.Foreground(ColorDimText).Dim(true)
	StyleBorder        = tcell.StyleDefault.Foreground(ColorBorder)
	StyleRouteBadge    = tcell.StyleDefault.Foreground(ColorRoute).Bold(true)
	StyleStep          = tcell.StyleDefault.Foreground(ColorStep)
	StyleAnswer        = tcell.StyleDefault.Foreground(ColorAnswer).Bold(true)
	StyleProgressFill  = tcell.StyleDefault.Foreground(ColorProgressBar)
	StyleProgressEmpty = tcell.StyleDefault.Foreground(ColorProgressBarBg)
	StyleStatusBar     = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorDarkGray)
	StyleModalBorder   = tcell.StyleDefault.Foreground(ColorBorder)
	StyleModalTitle    = tcell.StyleDefault.Foreground(ColorStep).Bold(true)
)
