// Package home is the start screen: due-review and skill-block counts plus
// the main menu.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/screens/drill"
	"github.com/rebootlabs/mastery/internal/screens/skillmap"
	"github.com/rebootlabs/mastery/internal/ui/components"
	"github.com/rebootlabs/mastery/internal/ui/layout"
	"github.com/rebootlabs/mastery/internal/ui/theme"
)

// Service is everything the terminal app reads and writes.
type Service interface {
	drill.Reviewer
	skillmap.Source
}

type statsLoadedMsg struct {
	Due     int
	Summary *mastery.SkillSummary
	Err     error
}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	service   Service
	studentID string
	menu      components.Menu
	due       int
	summary   *mastery.SkillSummary
	errMsg    string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a new HomeScreen for the student.
func New(service Service, studentID string) *HomeScreen {
	items := []components.MenuItem{
		{Label: "Review drill", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: drill.New(service, studentID)}
			}
		}},
		{Label: "Skill blocks", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: skillmap.New(service, studentID)}
			}
		}},
		{Label: "Quit", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}
	return &HomeScreen{
		service:   service,
		studentID: studentID,
		menu:      components.NewMenu(items),
	}
}

// Init reloads the counts; it runs again whenever a child screen pops.
func (h *HomeScreen) Init() tea.Cmd {
	service, student := h.service, h.studentID
	return func() tea.Msg {
		ctx := context.Background()
		cards, err := service.ListDueReviews(ctx, student)
		if err != nil {
			return statsLoadedMsg{Err: err}
		}
		sum, err := service.SkillSummary(ctx, student)
		return statsLoadedMsg{Due: len(cards), Summary: sum, Err: err}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(statsLoadedMsg); ok {
		h.errMsg = ""
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			return h, nil
		}
		h.due, h.summary = msg.Due, msg.Summary
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Centered(theme.Title, width, "Mastery & Review"))
	b.WriteString("\n\n")
	b.WriteString(theme.Centered(theme.Body, width, h.statsLine()))
	b.WriteString("\n\n")
	if h.errMsg != "" {
		b.WriteString(theme.Centered(lipgloss.NewStyle().Foreground(theme.Error), width, h.errMsg))
		b.WriteString("\n\n")
	}
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, h.menu.View()))
	return b.String()
}

func (h *HomeScreen) statsLine() string {
	if h.summary == nil {
		return fmt.Sprintf("Reviews due: %d", h.due)
	}
	return fmt.Sprintf("Reviews due: %d     Skill blocks earned: %d/%d (%.1f%%)",
		h.due, h.summary.Earned, h.summary.Total, h.summary.EarnRate)
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}
