package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/rebootlabs/mastery/internal/screen"
)

// stubScreen is a minimal screen for testing.
type stubScreen struct {
	title string
	inits int
}

func (s *stubScreen) Init() tea.Cmd {
	s.inits++
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func TestPush(t *testing.T) {
	r := New(&stubScreen{title: "home"})

	drill := &stubScreen{title: "drill"}
	r.Push(drill)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "drill" {
		t.Errorf("expected active 'drill', got %q", r.Active().Title())
	}
	if drill.inits != 1 {
		t.Errorf("expected Init() once on pushed screen, got %d", drill.inits)
	}
}

func TestPop_RefreshesScreenBelow(t *testing.T) {
	home := &stubScreen{title: "home"}
	r := New(home)
	r.Push(&stubScreen{title: "drill"})
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "home" {
		t.Errorf("expected active 'home', got %q", r.Active().Title())
	}
	if home.inits != 1 {
		t.Errorf("expected Init() on the revealed screen, got %d calls", home.inits)
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	home := &stubScreen{title: "home"}
	r := New(home)

	if cmd := r.Pop(); cmd != nil {
		t.Error("expected nil command when popping the root")
	}
	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
	if home.inits != 0 {
		t.Errorf("root Init() ran %d times on a no-op pop", home.inits)
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	r.Update(PushScreenMsg{Screen: &stubScreen{title: "drill"}})

	summary := &stubScreen{title: "summary"}
	r.Update(ReplaceScreenMsg{Screen: summary})

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "summary" {
		t.Errorf("expected active 'summary', got %q", r.Active().Title())
	}
	if summary.inits != 1 {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}

	r.Update(PopScreenMsg{})
	if r.Active().Title() != "home" {
		t.Errorf("Back from summary should land on home, got %q", r.Active().Title())
	}
}

func TestReplaceAtRoot(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	r.Replace(&stubScreen{title: "other"})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.View(80, 24) != "other" {
		t.Errorf("View = %q, want %q", r.View(80, 24), "other")
	}
}
