package tui

// Rect is a screen region in cell coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

func (r Rect) Right() int {
	return r.X + r.Width
}

func (r Rect) Bottom() int {
	return r.Y + r.Height
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Layout splits the screen into the transcript, input and status regions.
type Layout struct {
	ScreenWidth  int
	ScreenHeight int
}

func NewLayout(width, height int) Layout {
	return Layout{ScreenWidth: width, ScreenHeight: height}
}

// CalculateAreas returns the three regions top to bottom: transcript, input
// box (3 rows, bordered) and status bar (1 row). The transcript keeps a small
// horizontal margin for readability.
func (l Layout) CalculateAreas() (transcript, input, status Rect) {
	statusHeight := 1
	inputHeight := 3
	transcriptHeight := l.ScreenHeight - statusHeight - inputHeight
	if transcriptHeight < 1 {
		transcriptHeight = 1
	}

	margin := 2
	transcriptWidth := l.ScreenWidth - 2*margin
	if transcriptWidth < 1 {
		transcriptWidth = l.ScreenWidth
		margin = 0
	}

	transcript = NewRect(margin, 0, transcriptWidth, transcriptHeight)
	input = NewRect(0, transcriptHeight, l.ScreenWidth, inputHeight)
	status = NewRect(0, transcriptHeight+inputHeight, l.ScreenWidth, statusHeight)
	return transcript, input, status
}

// WrapText breaks text into lines no wider than width, preferring space and
// newline boundaries.
func WrapText(text string, width int) []string {
	if width <= 0 || text == "" {
		return []string{}
	}

	runes := []rune(text)
	if len(runes) <= width && !containsNewline(runes) {
		return []string{text}
	}

	var lines []string
	for len(runes) > 0 {
		limit := width
		if limit > len(runes) {
			limit = len(runes)
		}

		breakAt := -1
		for i := 0; i < limit; i++ {
			if runes[i] == '\n' {
				breakAt = i
				break
			}
		}
		if breakAt == -1 {
			if limit == len(runes) {
				lines = append(lines, string(runes))
				break
			}
			for i := limit - 1; i >= 0; i-- {
				if runes[i] == ' ' {
					breakAt = i
					break
				}
			}
			if breakAt <= 0 {
				breakAt = limit
			}
		}

		lines = append(lines, string(runes[:breakAt]))
		runes = runes[breakAt:]
		for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\n') {
			runes = runes[1:]
		}
	}

	return lines
}

func containsNewline(runes []rune) bool {
	for _, r := range runes {
		if r == '\n' {
			return true
		}
	}
	return false
}

// VisibleWindow returns the slice of lines that fits in height rows starting
// at the scroll offset, clamped to the available range.
func VisibleWindow(lines []string, height, scroll int) []string {
	if height <= 0 || len(lines) == 0 {
		return nil
	}

	if scroll > len(lines)-1 {
		scroll = len(lines) - 1
	}
	if scroll < 0 {
		scroll = 0
	}

	end := scroll + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[scroll:end]
}

// MaxScroll returns the scroll offset that puts the last line on screen.
func MaxScroll(totalLines, height int) int {
	if totalLines <= height {
		return 0
	}
	return totalLines - height
}
