// Package app runs the terminal review app on top of the screen router.
package app

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/screens/drill"
	"github.com/rebootlabs/mastery/internal/screens/home"
	"github.com/rebootlabs/mastery/internal/ui/layout"
)

// Options configures the app.
type Options struct {
	Service   home.Service
	StudentID string
	// DrillOnly opens the review drill directly instead of the home menu.
	DrillOnly bool
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router    *router.Router
	studentID string
	width     int
	height    int
}

// newAppModel creates the root model with the home screen at the bottom of
// the stack.
func newAppModel(opts Options) AppModel {
	m := AppModel{
		router:    router.New(home.New(opts.Service, opts.StudentID)),
		studentID: opts.StudentID,
	}
	if opts.DrillOnly {
		m.router.Replace(drill.New(opts.Service, opts.StudentID))
	}
	return m
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	// A pop at the root of a drill-only run ends the program.
	if _, ok := msg.(router.PopScreenMsg); ok && m.router.Depth() == 1 {
		return m, tea.Quit
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	header := layout.RenderHeader(active.Title(), m.studentID, m.width)
	footer := layout.RenderFooter(keyHints(active), m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func keyHints(s screen.Screen) []layout.KeyHint {
	if p, ok := s.(screen.KeyHintProvider); ok {
		return p.KeyHints()
	}
	return []layout.KeyHint{
		{Key: "Esc", Description: "Back"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	if opts.Service == nil || opts.StudentID == "" {
		return fmt.Errorf("app needs a service and a student")
	}
	p := tea.NewProgram(newAppModel(opts), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal app: %w", err)
	}
	return nil
}
