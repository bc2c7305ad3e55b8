// Package drill is the review-drill screen: it walks a student through
// every due review card, grading each answer as it is submitted.
package drill

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/rebootlabs/mastery/internal/router"
	"github.com/rebootlabs/mastery/internal/screen"
	"github.com/rebootlabs/mastery/internal/screens/summary"
	"github.com/rebootlabs/mastery/internal/spacedrep"
	"github.com/rebootlabs/mastery/internal/ui/components"
	"github.com/rebootlabs/mastery/internal/ui/layout"
)

// Reviewer lists and grades review cards. *engine.Engine implements it.
type Reviewer interface {
	ListDueReviews(ctx context.Context, studentID string) ([]spacedrep.DueCard, error)
	SubmitReviewAnswer(ctx context.Context, in engine.ReviewAnswer) (spacedrep.AttemptResult, error)
}

type phase int

const (
	phaseLoading phase = iota
	phaseQuestion
	phaseGrading
	phaseFeedback
	phaseEmpty
	phaseError
)

// DrillScreen implements screen.Screen for one pass over the due cards.
type DrillScreen struct {
	reviewer  Reviewer
	studentID string

	phase    phase
	cards    []spacedrep.DueCard
	index    int
	input    components.TextInput
	choice   components.MultiChoice
	last     spacedrep.AttemptResult
	outcomes []summary.Outcome
	errMsg   string
}

var _ screen.Screen = (*DrillScreen)(nil)
var _ screen.KeyHintProvider = (*DrillScreen)(nil)

// New creates a drill over the student's due cards.
func New(reviewer Reviewer, studentID string) *DrillScreen {
	return &DrillScreen{reviewer: reviewer, studentID: studentID}
}

func (s *DrillScreen) Init() tea.Cmd {
	return s.loadCards()
}

func (s *DrillScreen) Title() string {
	return "Review Drill"
}

func (s *DrillScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseQuestion:
		if s.multipleChoice() {
			return []layout.KeyHint{
				{Key: "↑↓/1-9", Description: "Choose"},
				{Key: "Enter", Description: "Submit"},
				{Key: "Esc", Description: "Stop"},
			}
		}
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Stop"},
		}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	default:
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
}

func (s *DrillScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case cardsLoadedMsg:
		return s.handleLoaded(msg)
	case answeredMsg:
		return s.handleAnswered(msg)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseQuestion && !s.multipleChoice() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *DrillScreen) loadCards() tea.Cmd {
	reviewer, student := s.reviewer, s.studentID
	return func() tea.Msg {
		cards, err := reviewer.ListDueReviews(context.Background(), student)
		return cardsLoadedMsg{Cards: cards, Err: err}
	}
}

func (s *DrillScreen) handleLoaded(msg cardsLoadedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.phase = phaseError
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.cards = msg.Cards
	s.index = 0
	if len(s.cards) == 0 {
		s.phase = phaseEmpty
		return s, nil
	}
	return s, s.showCard()
}

// showCard prepares the input for the current card.
func (s *DrillScreen) showCard() tea.Cmd {
	s.phase = phaseQuestion
	card := s.current()
	if len(card.Options) > 0 {
		s.choice = components.NewMultiChoice(card.Options)
		return nil
	}
	s.input = components.NewTextInput("Type your answer...", 200)
	return s.input.Init()
}

func (s *DrillScreen) current() spacedrep.DueCard {
	return s.cards[s.index]
}

func (s *DrillScreen) multipleChoice() bool {
	return s.index < len(s.cards) && len(s.current().Options) > 0
}

func (s *DrillScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case phaseError, phaseEmpty:
		return s, popCmd
	case phaseFeedback:
		return s.advance()
	case phaseQuestion:
		if msg.String() == "esc" {
			return s.finish()
		}
		if s.multipleChoice() {
			s.choice, _ = s.choice.Update(msg)
			if s.choice.Submitted {
				return s.submit(s.choice.Chosen())
			}
			return s, nil
		}
		if msg.String() == "enter" {
			if s.input.Value() == "" {
				return s, nil
			}
			return s.submit(s.input.Value())
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *DrillScreen) submit(answer string) (screen.Screen, tea.Cmd) {
	s.phase = phaseGrading
	reviewer := s.reviewer
	in := engine.ReviewAnswer{ItemID: s.current().ItemID, StudentID: s.studentID, Answer: answer}
	return s, func() tea.Msg {
		res, err := reviewer.SubmitReviewAnswer(context.Background(), in)
		return answeredMsg{Answer: answer, Result: res, Err: err}
	}
}

func (s *DrillScreen) handleAnswered(msg answeredMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.phase = phaseError
		s.errMsg = msg.Err.Error()
		return s, nil
	}
	s.last = msg.Result
	if s.multipleChoice() {
		s.choice.Reveal(msg.Result.CorrectAnswer)
	} else {
		s.input.Submit(msg.Result.Correct)
	}

	card := s.current()
	out := summary.Outcome{
		Concept:   card.ConceptName,
		Label:     card.Label,
		Correct:   msg.Result.Correct,
		Finished:  msg.Result.Finished,
		Answer:    msg.Answer,
		Expected:  msg.Result.CorrectAnswer,
		ReviewNum: card.ReviewNum,
	}
	if msg.Result.Next != nil {
		due := msg.Result.Next.DueAt
		out.NextDue = &due
	}
	s.outcomes = append(s.outcomes, out)
	s.phase = phaseFeedback
	return s, nil
}

func (s *DrillScreen) advance() (screen.Screen, tea.Cmd) {
	s.index++
	if s.index >= len(s.cards) {
		return s.finish()
	}
	return s, s.showCard()
}

// finish swaps the drill for its summary. Stopping before any answer
// just goes back.
func (s *DrillScreen) finish() (screen.Screen, tea.Cmd) {
	if len(s.outcomes) == 0 {
		return s, popCmd
	}
	sum := summary.New(s.outcomes, len(s.cards))
	return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: sum} }
}

func popCmd() tea.Msg { return router.PopScreenMsg{} }
