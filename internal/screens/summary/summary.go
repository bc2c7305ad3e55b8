// Package summary shows the result of a finished review drill.
package summary

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/ui/layout"
	"github.com/rebootlabs/mastery/internal/ui/theme"
)

// Outcome is one answered review card.
type Outcome struct {
	Concept   string
	Label     string
	ReviewNum int
	Answer    string
	Expected  string
	Correct   bool
	Finished  bool
	NextDue   *time.Time
}

// SummaryScreen displays the drill summary.
type SummaryScreen struct {
	outcomes []Outcome
	due      int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a summary of outcomes out of due cards.
func New(outcomes []Outcome, due int) *SummaryScreen {
	return &SummaryScreen{outcomes: outcomes, due: due}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Drill Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

// Counts returns how many cards were answered, answered correctly, and
// finished their last review.
func (s *SummaryScreen) Counts() (answered, correct, finished int) {
	for _, o := range s.outcomes {
		answered++
		if o.Correct {
			correct++
		}
		if o.Finished {
			finished++
		}
	}
	return answered, correct, finished
}

func (s *SummaryScreen) View(width, height int) string {
	answered, correct, finished := s.Counts()
	var b strings.Builder

	b.WriteString(theme.Centered(theme.Title, width, "Drill complete!"))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Answered: %d/%d        Correct: %d        Finished: %d",
		answered, s.due, correct, finished)
	b.WriteString(theme.Centered(theme.Body, width, stats))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", max(min(width-8, 60), 0)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("Concepts")))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	for _, o := range s.outcomes {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, renderOutcome(o)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderOutcome(o Outcome) string {
	switch {
	case !o.Correct:
		return theme.Incorrect.Render("✗ ") +
			theme.Body.Render(fmt.Sprintf("%s (%s)  answer: %s", o.Concept, o.Label, o.Expected))
	case o.Finished:
		return theme.Earned.Render("★ ") + theme.Body.Render(fmt.Sprintf("%s  all reviews done", o.Concept))
	case o.NextDue != nil:
		return theme.Correct.Render("✓ ") +
			theme.Body.Render(fmt.Sprintf("%s (%s)  next %s", o.Concept, o.Label, o.NextDue.Local().Format("Jan 2 15:04")))
	default:
		return theme.Correct.Render("✓ ") + theme.Body.Render(o.Concept)
	}
}
