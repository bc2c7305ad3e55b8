package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/ui/theme"
)

// ProgressBar displays a horizontal bar for a 0-100 score.
type ProgressBar struct {
	Label     string
	Score     float64
	ShowScore bool
	Width     int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, score float64, showScore bool, width int) ProgressBar {
	return ProgressBar{
		Label:     label,
		Score:     score,
		ShowScore: showScore,
		Width:     width,
	}
}

// filled returns the number of filled cells out of barWidth.
func (p ProgressBar) filled(barWidth int) int {
	n := int(float64(barWidth) * p.Score / 100)
	return max(0, min(n, barWidth))
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string
	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	scoreWidth := 0
	if p.ShowScore {
		scoreWidth = 7 // "  100.0"
	}
	barWidth := max(p.Width-lipgloss.Width(result)-scoreWidth, 4)

	filled := p.filled(barWidth)
	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	if p.ShowScore {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("  %5.1f", p.Score))
	}
	return result
}
