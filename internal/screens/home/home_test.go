package home

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/spacedrep"
)

type fakeService struct{}

func (fakeService) ListDueReviews(context.Context, string) ([]spacedrep.DueCard, error) {
	return []spacedrep.DueCard{{ItemID: "a"}, {ItemID: "b"}}, nil
}

func (fakeService) SubmitReviewAnswer(context.Context, engine.ReviewAnswer) (spacedrep.AttemptResult, error) {
	return spacedrep.AttemptResult{}, nil
}

func (fakeService) SkillSummary(context.Context, string) (*mastery.SkillSummary, error) {
	return &mastery.SkillSummary{Total: 4, Earned: 1, EarnRate: 25}, nil
}

func TestHome_Stats(t *testing.T) {
	h := New(fakeService{}, "s1")
	h.Update(h.Init()())
	view := h.View(80, 20)
	if !strings.Contains(view, "Reviews due: 2") {
		t.Errorf("view missing due count:\n%s", view)
	}
	if !strings.Contains(view, "1/4") {
		t.Errorf("view missing earned count:\n%s", view)
	}
}

func TestHome_MenuPushesScreens(t *testing.T) {
	tests := []struct {
		downs int
		title string
	}{
		{0, "Review Drill"},
		{1, "Skill Blocks"},
	}
	for _, tt := range tests {
		h := New(fakeService{}, "s1")
		for i := 0; i < tt.downs; i++ {
			h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
		}
		_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
		if cmd == nil {
			t.Fatalf("%s: expected a command", tt.title)
		}
		push, ok := cmd().(router.PushScreenMsg)
		if !ok {
			t.Fatalf("%s: expected PushScreenMsg", tt.title)
		}
		if push.Screen.Title() != tt.title {
			t.Errorf("pushed %q, want %q", push.Screen.Title(), tt.title)
		}
	}
}
