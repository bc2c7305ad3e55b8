package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/store"
)

// Options wires a Scorer.
type Options struct {
	Courses   store.CourseRepo
	Skills    store.SkillRepo
	Mastery   store.MasteryRepo
	Events    store.EventRepo
	Formative store.FormativeRepo
	Publisher notify.Publisher
	Clock     clock.Clock
	Policy    policy.Policy
	Logger    *logger.Logger
}

// Result is the outcome of syncing one skill block.
type Result struct {
	SkillID    string           `json:"skill_id"`
	SkillName  string           `json:"skill_name"`
	Category   string           `json:"category"`
	Level      int              `json:"level"`
	Scores     Scores           `json:"scores"`
	EarnedAt   *time.Time       `json:"earned_at,omitempty"`
	Transition *StateTransition `json:"transition,omitempty"`
}

// Scorer recomputes skill blocks from the event log and formative results.
type Scorer struct {
	courses   store.CourseRepo
	skills    store.SkillRepo
	mastery   store.MasteryRepo
	events    store.EventRepo
	formative store.FormativeRepo
	pub       notify.Publisher
	clock     clock.Clock
	policy    policy.Policy
	log       *logger.Logger
}

// NewScorer creates a Scorer.
func NewScorer(opts Options) *Scorer {
	s := &Scorer{
		courses:   opts.Courses,
		skills:    opts.Skills,
		mastery:   opts.Mastery,
		events:    opts.Events,
		formative: opts.Formative,
		pub:       opts.Publisher,
		clock:     opts.Clock,
		policy:    opts.Policy,
		log:       opts.Logger,
	}
	if s.pub == nil {
		s.pub = notify.Nop{}
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "mastery.Scorer")
	return s
}

// Sync recomputes every tracked skill block of the student for the
// offering. Running it twice with no new events yields the same blocks.
func (s *Scorer) Sync(ctx context.Context, studentID, offeringID string) ([]Result, error) {
	if _, err := s.courses.GetOffering(ctx, offeringID); err != nil {
		return nil, err
	}

	skillIDs, err := s.trackedSkills(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(skillIDs) == 0 {
		return []Result{}, nil
	}
	skills, err := s.skills.Skills(ctx, skillIDs...)
	if err != nil {
		return nil, err
	}

	scores, err := s.compute(ctx, studentID, offeringID)
	if err != nil {
		return nil, err
	}
	level, err := s.level(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	results := make([]Result, 0, len(skillIDs))
	for _, id := range skillIDs {
		sk := skills[id]
		var from MasteryState
		b, err := s.mastery.UpdateSkillBlock(ctx, studentID, id, offeringID,
			func(b *store.SkillBlockRecord, exists bool) error {
				from = stateOf(exists, b.IsEarned)
				if scores.IsEarned && !b.IsEarned {
					at := now
					b.EarnedAt = &at
				}
				b.Level = level
				b.CheckpointScore = scores.Checkpoint
				b.FormativeScore = scores.Formative
				b.UnderstandScore = scores.Understand
				b.TotalScore = scores.Total
				b.IsEarned = scores.IsEarned
				b.UpdatedAt = now
				return nil
			})
		if err != nil {
			return nil, fmt.Errorf("sync skill %s: %w", id, err)
		}

		res := Result{
			SkillID:   id,
			SkillName: sk.Name,
			Category:  sk.Category,
			Level:     level,
			Scores:    scores,
			EarnedAt:  b.EarnedAt,
		}
		to := stateOf(true, b.IsEarned)
		if from != to {
			res.Transition = &StateTransition{SkillID: id, SkillName: sk.Name, From: from, To: to}
			s.log.Info("skill block transition",
				"student_id", studentID, "skill_id", id, "from", from, "to", to, "total", scores.Total)
		}

		if b.IsEarned {
			if err := s.mastery.PromoteOwned(ctx, studentID, id, min(int(b.TotalScore), 100), now); err != nil {
				return nil, fmt.Errorf("promote gap entry %s: %w", id, err)
			}
			if from != StateEarned {
				s.publish(ctx, res)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Scorer) trackedSkills(ctx context.Context, studentID string) ([]string, error) {
	ids, hasGoal, err := s.skills.GoalSkillIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if hasGoal {
		return ids, nil
	}
	return s.mastery.StudentSkillIDs(ctx, studentID)
}

// compute tallies the ended sessions of the offering once; every skill of
// the sync shares the result.
func (s *Scorer) compute(ctx context.Context, studentID, offeringID string) (Scores, error) {
	sessions, err := s.courses.EndedSessions(ctx, offeringID)
	if err != nil {
		return Scores{}, err
	}
	var in Inputs
	if len(sessions) > 0 {
		ids := make([]string, len(sessions))
		for i, sess := range sessions {
			ids[i] = sess.ID
		}
		if in.QuizCorrect, in.QuizTotal, err = s.events.QuizTally(ctx, studentID, ids); err != nil {
			return Scores{}, err
		}
		if in.FormativePcts, err = s.formative.Percentages(ctx, studentID, ids); err != nil {
			return Scores{}, err
		}
		if in.PulseUnderstand, in.PulseConfused, err = s.events.PulseTally(ctx, studentID, ids); err != nil {
			return Scores{}, err
		}
	}
	return Compute(in, s.policy), nil
}

func (s *Scorer) level(ctx context.Context, studentID string) (int, error) {
	p, err := s.skills.LatestPlacement(ctx, studentID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return s.policy.DefaultLevel, nil
	}
	return LevelFromPlacement(p.Level, s.policy.DefaultLevel), nil
}

func (s *Scorer) publish(ctx context.Context, res Result) {
	ev, err := notify.NewEvent(notify.EventSkillEarned, s.clock.Now(), res)
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("failed to publish earned skill", "skill_id", res.SkillID, "error", err)
	}
}
