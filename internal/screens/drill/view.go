package drill

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/ui/theme"
)

func (s *DrillScreen) View(width, height int) string {
	switch s.phase {
	case phaseLoading:
		return centered(width, theme.TextDim, "\n\n\n  Loading due reviews...")
	case phaseError:
		return centered(width, theme.Error, fmt.Sprintf("\n\n\n  Error: %s\n\n  Press any key to go back.", s.errMsg))
	case phaseEmpty:
		return centered(width, theme.Success, "\n\n\n  Nothing due right now.\n\n  Press any key to go back.")
	case phaseFeedback:
		return s.renderCard(width) + "\n\n" + s.renderFeedback(width)
	default:
		return s.renderCard(width)
	}
}

// renderCard renders the info line, the question and the answer area.
func (s *DrillScreen) renderCard(width int) string {
	card := s.current()
	var b strings.Builder

	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  %s", card.ConceptName))
	infoRight := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("Card %d/%d  review %d (%s)", s.index+1, len(s.cards), card.ReviewNum, card.Label))

	infoLine := infoLeft
	if pad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4; pad > 0 {
		infoLine += strings.Repeat(" ", pad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render(card.Question))
	b.WriteString("\n\n")

	if s.multipleChoice() {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.choice.View()))
	} else {
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render("Answer: " + s.input.View()))
	}
	if s.phase == phaseGrading {
		b.WriteString("\n")
		b.WriteString(centered(width, theme.TextDim, "Checking..."))
	}
	return b.String()
}

func (s *DrillScreen) renderFeedback(width int) string {
	res := s.last
	var lines []string
	switch {
	case !res.Correct:
		lines = append(lines,
			theme.Centered(theme.Incorrect, width, "Not quite"),
			centered(width, theme.TextDim, fmt.Sprintf("Correct answer: %s", res.CorrectAnswer)))
	case res.Finished:
		lines = append(lines,
			theme.Centered(theme.Earned, width, "All reviews done!"),
			centered(width, theme.Text, "This concept is off your review list."))
	default:
		lines = append(lines, theme.Centered(theme.Correct, width, "Correct!"))
		if res.Next != nil {
			lines = append(lines, centered(width, theme.Text,
				fmt.Sprintf("Next review (%s) in %s", res.Next.Label, untilLabel(time.Until(res.Next.DueAt)))))
		}
	}
	lines = append(lines, "", centered(width, theme.TextDim, "Press any key to continue..."))
	return strings.Join(lines, "\n")
}

// untilLabel renders a coarse duration such as "3 days" or "5 hours".
func untilLabel(d time.Duration) string {
	switch {
	case d <= 0:
		return "now"
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24+0.5))
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()+0.5))
	case d < 90*time.Second:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()+0.5))
	}
}

func centered(width int, fg color.Color, s string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(fg).
		Render(s)
}
