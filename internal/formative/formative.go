// Package formative grades post-session formative assessments. Every
// missed question becomes a spaced-repetition item, and a missed concept
// that names a catalog skill weakens the student's gap-map entry.
package formative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/spacedrep"
	"github.com/rebootlabs/mastery/internal/store"
)

var (
	ErrAlreadySubmitted = errors.New("formative assessment already submitted")
	ErrNoAnswers        = errors.New("formative submission has no answers")
)

// Question is one assessment question with the student's answer.
type Question struct {
	ConceptTag    string   `json:"concept_tag"`
	Question      string   `json:"question" validate:"required"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
	Options       []string `json:"options"`
	Answer        string   `json:"answer"`
}

// Submission is a student's answer sheet for a session.
type Submission struct {
	SessionID string     `json:"session_id" validate:"required"`
	StudentID string     `json:"student_id" validate:"required"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

// Graded is the verdict on one question.
type Graded struct {
	Position      int    `json:"position"`
	ConceptTag    string `json:"concept_tag"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// Result is a graded submission.
type Result struct {
	SubmissionID       string   `json:"submission_id"`
	Score              int      `json:"score"`
	Total              int      `json:"total"`
	Percentage         float64  `json:"percentage"`
	Results            []Graded `json:"results"`
	ReviewItemsCreated int      `json:"review_items_created"`
	WeakenedSkills     []string `json:"weakened_skills"`
	// FailedMisses counts misses whose review item or gap-map update could
	// not be written. The submission itself is kept.
	FailedMisses int `json:"failed_misses,omitempty"`
}

// Grade compares every trimmed answer to the trimmed correct answer.
func Grade(questions []Question) (graded []Graded, score int) {
	graded = make([]Graded, len(questions))
	for i, q := range questions {
		answer := strings.TrimSpace(q.Answer)
		ok := answer == strings.TrimSpace(q.CorrectAnswer)
		if ok {
			score++
		}
		graded[i] = Graded{
			Position:      i + 1,
			ConceptTag:    q.ConceptTag,
			Question:      q.Question,
			Answer:        answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     ok,
		}
	}
	return graded, score
}

// Options wires a Service.
type Options struct {
	Submissions store.FormativeRepo
	Skills      store.SkillRepo
	Mastery     store.MasteryRepo
	Scheduler   *spacedrep.Scheduler
	Clock       clock.Clock
	Policy      policy.Policy
	Logger      *logger.Logger
}

// Service grades submissions and feeds their misses downstream.
type Service struct {
	subs    store.FormativeRepo
	skills  store.SkillRepo
	mastery store.MasteryRepo
	sched   *spacedrep.Scheduler
	clock   clock.Clock
	policy  policy.Policy
	log     *logger.Logger
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	s := &Service{
		subs:    opts.Submissions,
		skills:  opts.Skills,
		mastery: opts.Mastery,
		sched:   opts.Scheduler,
		clock:   opts.Clock,
		policy:  opts.Policy,
		log:     opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "formative.Service")
	return s
}

// Submit grades and stores sub. A student submits once per session.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if len(sub.Questions) == 0 {
		return nil, ErrNoAnswers
	}
	graded, score := Grade(sub.Questions)
	total := len(graded)
	now := s.clock.Now()

	answers := make([]store.FormativeAnswerRecord, total)
	for i, g := range graded {
		options := sub.Questions[i].Options
		if options == nil {
			options = []string{}
		}
		raw, err := json.Marshal(options)
		if err != nil {
			return nil, fmt.Errorf("encode options: %w", err)
		}
		answers[i] = store.FormativeAnswerRecord{
			Position:      g.Position,
			ConceptTag:    g.ConceptTag,
			QuestionText:  g.Question,
			CorrectAnswer: g.CorrectAnswer,
			Options:       string(raw),
			IsCorrect:     g.IsCorrect,
		}
	}
	rec := &store.FormativeSubmissionRecord{
		SessionID:   sub.SessionID,
		StudentID:   sub.StudentID,
		Score:       score,
		Total:       total,
		Percentage:  100 * float64(score) / float64(total),
		SubmittedAt: now,
	}
	created, err := s.subs.Create(ctx, rec, answers)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadySubmitted
	}

	res := &Result{
		SubmissionID:   rec.ID,
		Score:          score,
		Total:          total,
		Percentage:     rec.Percentage,
		Results:        graded,
		WeakenedSkills: []string{},
	}
	for i, g := range graded {
		if g.IsCorrect {
			continue
		}
		_, itemCreated, err := s.sched.RegisterMiss(ctx, spacedrep.Miss{
			StudentID:     sub.StudentID,
			SessionID:     sub.SessionID,
			ConceptTag:    g.ConceptTag,
			QuestionText:  g.Question,
			CorrectAnswer: g.CorrectAnswer,
			Options:       sub.Questions[i].Options,
		})
		failed := false
		if err != nil {
			s.log.Warn("register miss failed",
				"submission_id", rec.ID, "position", g.Position, "concept_tag", g.ConceptTag, "error", err)
			failed = true
		} else if itemCreated {
			res.ReviewItemsCreated++
		}
		skill, err := s.weaken(ctx, sub.StudentID, g.ConceptTag)
		if err != nil {
			s.log.Warn("weaken gap entry failed",
				"submission_id", rec.ID, "position", g.Position, "concept_tag", g.ConceptTag, "error", err)
			failed = true
		} else if skill != "" {
			res.WeakenedSkills = append(res.WeakenedSkills, skill)
		}
		if failed {
			res.FailedMisses++
		}
	}

	s.log.Info("formative graded",
		"session_id", sub.SessionID, "student_id", sub.StudentID,
		"score", score, "total", total, "review_items", res.ReviewItemsCreated)
	return res, nil
}

// weaken lowers the gap-map progress of the skill a concept tag names and
// marks it LEARNING. OWNED entries are left alone by the store.
func (s *Service) weaken(ctx context.Context, studentID, tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", nil
	}
	skill, err := s.skills.MatchName(ctx, tag)
	if err != nil {
		return "", err
	}
	if skill == nil {
		s.log.Debug("concept tag matches no skill", "concept_tag", tag)
		return "", nil
	}

	entries, err := s.mastery.GapEntries(ctx, studentID)
	if err != nil {
		return "", err
	}
	progress := s.policy.GapStartProgress
	for _, e := range entries {
		if e.SkillID == skill.ID {
			if e.Status == store.GapStatusOwned {
				return "", nil
			}
			progress = e.Progress
			break
		}
	}
	err = s.mastery.SetGapEntry(ctx, store.GapEntryRecord{
		StudentID: studentID,
		SkillID:   skill.ID,
		Status:    store.GapStatusLearning,
		Progress:  max(0, progress-s.policy.GapPenalty),
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		return "", err
	}
	return skill.ID, nil
}

// Miss is a wrongly answered question of a stored submission.
type Miss struct {
	SubmissionID  string
	Position      int
	ConceptTag    string
	QuestionText  string
	CorrectAnswer string
}

// Misses returns the student's wrong answers for the session, in question
// order. A student without a submission has none.
func (s *Service) Misses(ctx context.Context, sessionID, studentID string) ([]Miss, error) {
	sub, err := s.subs.Get(ctx, sessionID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	answers, err := s.subs.Answers(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	var out []Miss
	for _, a := range answers {
		if a.IsCorrect {
			continue
		}
		out = append(out, Miss{
			SubmissionID:  sub.ID,
			Position:      a.Position,
			ConceptTag:    a.ConceptTag,
			QuestionText:  a.QuestionText,
			CorrectAnswer: a.CorrectAnswer,
		})
	}
	return out, nil
}
