package spacedrep

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/store"
)

// Miss is one wrongly answered formative question.
type Miss struct {
	StudentID     string
	SessionID     string
	ConceptTag    string
	QuestionText  string
	CorrectAnswer string
	Options       []string
}

// DueCard is the next review of a due item.
type DueCard struct {
	ItemID      string        `json:"item_id"`
	ConceptName string        `json:"concept_name"`
	Question    string        `json:"question"`
	Options     []string      `json:"options"`
	ReviewNum   int           `json:"review_num"`
	Label       string        `json:"label"`
	DueAt       time.Time     `json:"due_at"`
	Overdue     time.Duration `json:"overdue"`
}

// AttemptResult is the outcome of one review answer.
type AttemptResult struct {
	Correct bool `json:"correct"`
	// Completed is the stage this answer completed, nil when the answer
	// was wrong or the item was already finished.
	Completed *Stage `json:"completed,omitempty"`
	// Next is the following stage, nil when finished.
	Next          *Stage `json:"next,omitempty"`
	CurrentReview int    `json:"current_review"`
	Finished      bool   `json:"finished"`
	CorrectAnswer string `json:"correct_answer"`
}

// Scheduler manages spaced-repetition items in the store.
type Scheduler struct {
	reviews store.ReviewRepo
	matcher ConceptMatcher
	clock   clock.Clock
	policy  policy.Policy
	log     *logger.Logger
}

// NewScheduler creates a scheduler. A nil matcher means ExactMatcher.
func NewScheduler(reviews store.ReviewRepo, matcher ConceptMatcher, clk clock.Clock,
	pol policy.Policy, log *logger.Logger) *Scheduler {
	if matcher == nil {
		matcher = ExactMatcher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		reviews: reviews,
		matcher: matcher,
		clock:   clk,
		policy:  pol,
		log:     log.With("service", "spacedrep.Scheduler"),
	}
}

// RegisterMiss creates a review item for the missed concept unless the
// student already has one. created is false when an existing item (whose
// schedule is left untouched) is returned.
func (s *Scheduler) RegisterMiss(ctx context.Context, m Miss) (*Item, bool, error) {
	concept := ConceptKey(m.ConceptTag, m.QuestionText, s.policy.ConceptFallbackRunes, s.policy.ConceptMaxRunes)
	if concept == "" {
		return nil, false, errors.New("missed question has neither concept tag nor text")
	}

	names, err := s.reviews.ConceptNames(ctx, m.StudentID)
	if err != nil {
		return nil, false, fmt.Errorf("load concepts: %w", err)
	}
	if name, ok := s.matcher.Match(concept, names); ok {
		return s.byConcept(ctx, m.StudentID, name)
	}

	now := s.clock.Now()
	schedule, err := encodeJSON(NewSchedule(now, s.policy.ReviewStages))
	if err != nil {
		return nil, false, fmt.Errorf("encode schedule: %w", err)
	}
	options := m.Options
	if options == nil {
		options = []string{}
	}
	opts, err := encodeJSON(options)
	if err != nil {
		return nil, false, fmt.Errorf("encode options: %w", err)
	}

	rec := &store.ReviewItemRecord{
		StudentID:       m.StudentID,
		ConceptName:     concept,
		SourceSessionID: m.SessionID,
		ReviewQuestion:  m.QuestionText,
		ReviewAnswer:    m.CorrectAnswer,
		ReviewOptions:   opts,
		Schedule:        schedule,
		CreatedAt:       now,
	}
	created, err := s.reviews.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("create review item: %w", err)
	}
	if !created {
		// Lost a race with a concurrent miss of the same concept.
		return s.byConcept(ctx, m.StudentID, concept)
	}

	s.log.Debug("review item created", "item_id", rec.ID, "concept", concept)
	it, err := FromRecord(*rec)
	if err != nil {
		return nil, false, err
	}
	return it, true, nil
}

func (s *Scheduler) byConcept(ctx context.Context, studentID, concept string) (*Item, bool, error) {
	rec, err := s.reviews.GetByConcept(ctx, studentID, concept)
	if err != nil {
		return nil, false, err
	}
	it, err := FromRecord(*rec)
	return it, false, err
}

// RecordAttempt grades a review answer. A correct answer completes the
// first incomplete stage; a wrong one changes nothing.
func (s *Scheduler) RecordAttempt(ctx context.Context, itemID, studentID, answer string) (AttemptResult, error) {
	var res AttemptResult
	now := s.clock.Now()

	_, err := s.reviews.Update(ctx, itemID, func(rec *store.ReviewItemRecord) error {
		if rec.StudentID != studentID {
			return fmt.Errorf("review item %s: %w", itemID, store.ErrNotFound)
		}
		it, err := FromRecord(*rec)
		if err != nil {
			return err
		}
		res.CorrectAnswer = it.Answer
		res.Correct = strings.TrimSpace(answer) == strings.TrimSpace(it.Answer)

		if res.Correct {
			if i := it.Schedule.Complete(now); i >= 0 {
				done := it.Schedule[i]
				res.Completed = &done
				it.CurrentReview = done.ReviewNum
			}
		}
		res.CurrentReview = it.CurrentReview
		res.Next = it.NextStage()
		res.Finished = it.Schedule.Finished()

		schedule, err := encodeJSON(it.Schedule)
		if err != nil {
			return fmt.Errorf("encode schedule: %w", err)
		}
		rec.Schedule = schedule
		rec.CurrentReview = it.CurrentReview
		return nil
	})
	if err != nil {
		return AttemptResult{}, err
	}
	s.log.Debug("review attempt", "item_id", itemID, "correct", res.Correct, "current_review", res.CurrentReview)
	return res, nil
}

// Due returns the student's due review cards, most overdue first.
func (s *Scheduler) Due(ctx context.Context, studentID string) ([]DueCard, error) {
	items, err := s.Items(ctx, studentID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var cards []DueCard
	for _, it := range items {
		if !it.Schedule.IsDue(now) {
			continue
		}
		st := it.NextStage()
		cards = append(cards, DueCard{
			ItemID:      it.ID,
			ConceptName: it.ConceptName,
			Question:    it.Question,
			Options:     it.Options,
			ReviewNum:   st.ReviewNum,
			Label:       st.Label,
			DueAt:       st.DueAt,
			Overdue:     it.Schedule.Overdue(now),
		})
	}
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Overdue != cards[j].Overdue {
			return cards[i].Overdue > cards[j].Overdue
		}
		return cards[i].ItemID < cards[j].ItemID
	})
	return cards, nil
}

// Items returns every item of the student.
func (s *Scheduler) Items(ctx context.Context, studentID string) ([]Item, error) {
	recs, err := s.reviews.ForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load review items: %w", err)
	}
	return fromRecords(recs)
}

// ItemsForSession returns the student's items that originated in the
// session.
func (s *Scheduler) ItemsForSession(ctx context.Context, studentID, sessionID string) ([]Item, error) {
	recs, err := s.reviews.ForSession(ctx, studentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session review items: %w", err)
	}
	return fromRecords(recs)
}

func fromRecords(recs []store.ReviewItemRecord) ([]Item, error) {
	out := make([]Item, 0, len(recs))
	for _, rec := range recs {
		it, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, nil
}
