// Package skillmap lists a student's skill blocks grouped by category.
package skillmap

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/ui/layout"
	"github.com/rebootlabs/mastery/internal/ui/theme"
)

// Source loads the skill summary. *engine.Engine implements it.
type Source interface {
	SkillSummary(ctx context.Context, studentID string) (*mastery.SkillSummary, error)
}

type rowKind int

const (
	rowCategoryHeader rowKind = iota
	rowBlock
)

type row struct {
	kind     rowKind
	category string
	block    *mastery.Block
}

type summaryLoadedMsg struct {
	Summary *mastery.SkillSummary
	Err     error
}

// SkillMapScreen displays skill blocks organized by category.
type SkillMapScreen struct {
	source       Source
	studentID    string
	summary      *mastery.SkillSummary
	rows         []row
	cursor       int
	scrollOffset int
	errMsg       string
}

var _ screen.Screen = (*SkillMapScreen)(nil)
var _ screen.KeyHintProvider = (*SkillMapScreen)(nil)

// New creates a skill map for the student.
func New(source Source, studentID string) *SkillMapScreen {
	return &SkillMapScreen{source: source, studentID: studentID}
}

func (s *SkillMapScreen) Init() tea.Cmd {
	source, student := s.source, s.studentID
	return func() tea.Msg {
		sum, err := source.SkillSummary(context.Background(), student)
		return summaryLoadedMsg{Summary: sum, Err: err}
	}
}

func (s *SkillMapScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.setSummary(msg.Summary)
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.moveCursor(-1)
		case "down", "j":
			s.moveCursor(1)
		case "tab":
			s.nextCategory()
		case "enter":
			return s, s.selectBlock()
		case "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

// setSummary flattens the categories into rows, earned blocks first, and
// puts the cursor on the first block.
func (s *SkillMapScreen) setSummary(sum *mastery.SkillSummary) {
	s.summary = sum
	s.rows = s.rows[:0]
	for _, c := range sum.Categories {
		s.rows = append(s.rows, row{kind: rowCategoryHeader, category: c.Category})
		for _, group := range [][]mastery.Block{c.Earned, c.Remaining} {
			for i := range group {
				s.rows = append(s.rows, row{kind: rowBlock, category: c.Category, block: &group[i]})
			}
		}
	}
	s.cursor, s.scrollOffset = 0, 0
	s.moveCursor(1)
}

func (s *SkillMapScreen) View(width, height int) string {
	if s.errMsg != "" {
		return theme.Centered(lipgloss.NewStyle().Foreground(theme.Error), width, "\n\n  Error: "+s.errMsg)
	}
	if s.summary == nil {
		return theme.Centered(theme.Subtitle, width, "\n\n  Loading skill blocks...")
	}
	if len(s.rows) == 0 {
		return theme.Centered(theme.Subtitle, width, "\n\n  No skill blocks yet.")
	}

	footer := fmt.Sprintf("  Earned %d/%d (%.1f%%)   gap map: %d owned · %d learning · %d gap",
		s.summary.Earned, s.summary.Total, s.summary.EarnRate,
		s.summary.GapMap.Owned, s.summary.GapMap.Learning, s.summary.GapMap.Gap)
	listHeight := height - 2
	s.adjustScroll(listHeight)

	var lines []string
	for i := s.scrollOffset; i < len(s.rows) && len(lines) < listHeight; i++ {
		r := s.rows[i]
		if r.kind == rowCategoryHeader {
			lines = append(lines, renderCategoryHeader(r.category, width))
			continue
		}
		lines = append(lines, renderBlockRow(*r.block, i == s.cursor, width))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.TextDim).Render(footer))
	return strings.Join(lines, "\n")
}

func (s *SkillMapScreen) Title() string {
	return "Skill Blocks"
}

// KeyHints returns the key binding hints for the footer.
func (s *SkillMapScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Tab", Description: "Category"},
		{Key: "Enter", Description: "Scores"},
		{Key: "Esc", Description: "Back"},
	}
}

// moveCursor moves the cursor by delta, skipping category headers.
func (s *SkillMapScreen) moveCursor(delta int) {
	for next := s.cursor + delta; next >= 0 && next < len(s.rows); next += delta {
		if s.rows[next].kind == rowBlock {
			s.cursor = next
			return
		}
	}
}

// nextCategory jumps the cursor to the first block of the next category.
func (s *SkillMapScreen) nextCategory() {
	if s.cursor >= len(s.rows) {
		return
	}
	current := s.rows[s.cursor].category
	for i := s.cursor + 1; i < len(s.rows); i++ {
		if s.rows[i].kind == rowBlock && s.rows[i].category != current {
			s.cursor = i
			return
		}
	}
}

// adjustScroll keeps the cursor and its category header visible.
func (s *SkillMapScreen) adjustScroll(height int) {
	if height <= 0 {
		return
	}
	headerRow := s.cursor
	for headerRow > 0 && s.rows[headerRow-1].kind == rowCategoryHeader {
		headerRow--
	}
	if headerRow < s.scrollOffset {
		s.scrollOffset = headerRow
	}
	if s.cursor >= s.scrollOffset+height {
		s.scrollOffset = s.cursor - height + 1
	}
}

func (s *SkillMapScreen) selectBlock() tea.Cmd {
	if s.cursor >= len(s.rows) || s.rows[s.cursor].kind != rowBlock {
		return nil
	}
	detail := newBlockDetail(*s.rows[s.cursor].block)
	return func() tea.Msg { return router.PushScreenMsg{Screen: detail} }
}

func renderCategoryHeader(category string, width int) string {
	if category == "" {
		category = "Uncategorized"
	}
	return lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Width(width).
		Padding(1, 0, 0, 2).
		Render(strings.ToUpper(category))
}

func renderBlockRow(b mastery.Block, selected bool, width int) string {
	nameWidth := max(width-30, 10)
	name := b.SkillName
	if r := []rune(name); len(r) > nameWidth {
		name = string(r[:nameWidth-1]) + "…"
	}

	nameStyle := lipgloss.NewStyle().Foreground(theme.Text)
	mark := "  "
	switch {
	case selected:
		nameStyle = theme.Selected
	case b.Scores.IsEarned:
		nameStyle = lipgloss.NewStyle().Foreground(theme.Success)
	}
	if b.Scores.IsEarned {
		mark = theme.Earned.Render("✓ ")
	}
	cursor := "  "
	if selected {
		cursor = "▸ "
	}

	return fmt.Sprintf("  %s%s %s  %s%5.1f",
		cursor,
		mastery.BadgeFor(b.Level).Emoji,
		nameStyle.Render(fmt.Sprintf("%-*s", nameWidth, name)),
		mark,
		b.Scores.Total,
	)
}
