package skillmap

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/ui/components"
	"github.com/rebootlabs/mastery/internal/ui/layout"
	"github.com/rebootlabs/mastery/internal/ui/theme"
)

// BlockDetailScreen shows the sub-scores of one skill block.
type BlockDetailScreen struct {
	block mastery.Block
}

var _ screen.Screen = (*BlockDetailScreen)(nil)
var _ screen.KeyHintProvider = (*BlockDetailScreen)(nil)

func newBlockDetail(b mastery.Block) *BlockDetailScreen {
	return &BlockDetailScreen{block: b}
}

func (d *BlockDetailScreen) Init() tea.Cmd { return nil }
func (d *BlockDetailScreen) Title() string { return d.block.SkillName }

func (d *BlockDetailScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok && (kmsg.String() == "esc" || kmsg.String() == "q") {
		return d, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return d, nil
}

func (d *BlockDetailScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (d *BlockDetailScreen) View(width, height int) string {
	b := d.block
	barWidth := min(width-8, 60)

	var sb strings.Builder
	badge := mastery.BadgeFor(b.Level)
	sb.WriteString(theme.Selected.Render(fmt.Sprintf("  %s  %s", badge.Emoji, b.SkillName)))
	sb.WriteString("\n")
	status := "Not earned yet"
	if b.Scores.IsEarned {
		status = "Earned"
		if b.EarnedAt != nil {
			status += " " + b.EarnedAt.Local().Format("2006-01-02")
		}
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(
		fmt.Sprintf("  %s · %s", badge.Name, status)))
	sb.WriteString("\n\n")

	for _, part := range []struct {
		label string
		score float64
	}{
		{"Checkpoint", b.Scores.Checkpoint},
		{"Formative ", b.Scores.Formative},
		{"Understand", b.Scores.Understand},
		{"Total     ", b.Scores.Total},
	} {
		sb.WriteString("  ")
		sb.WriteString(components.NewProgressBar(part.label, part.score, true, barWidth).View())
		sb.WriteString("\n")
	}
	return sb.String()
}
