// Package policy holds every threshold, window, weight and cost used by the
// engine. A Policy is built once at startup and passed to each component.
package policy

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ReviewStage is one step of the fixed spaced-repetition schedule.
type ReviewStage struct {
	Offset time.Duration
	Label  string
}

// Policy is the engine configuration.
type Policy struct {
	// Weak-zone detection.
	QuizStreak         int           // consecutive wrong answers that raise QUIZ_WRONG
	ConfusedThreshold  int           // CONFUSED pulses inside PulseWindow that raise PULSE_CONFUSED
	PulseWindow        time.Duration // trailing window for pulses and COMBINED classification
	AlertCooldown      time.Duration // per trigger family
	TopicRunes         int
	TopicPlaceholder   string
	SupplementFallback string // fmt pattern, receives the topic

	// Mastery scoring.
	CheckpointWeight  float64
	FormativeWeight   float64
	UnderstandWeight  float64
	EarnThreshold     float64
	NeutralUnderstand float64
	DefaultLevel      int
	GapPenalty        int // progress lost per missed formative concept
	GapStartProgress  int // assumed progress of a skill with no gap entry

	// Spaced repetition.
	ReviewStages         []ReviewStage
	ConceptFallbackRunes int
	ConceptMaxRunes      int

	// Review routes, estimated minutes per item type.
	WeakZoneMinutes    int
	FormativeMinutes   int
	SpacedRepMinutes   int
	RequireRouteReview bool
}

// Default returns the production policy.
func Default() Policy {
	return Policy{
		QuizStreak:         2,
		ConfusedThreshold:  2,
		PulseWindow:        3 * time.Minute,
		AlertCooldown:      5 * time.Minute,
		TopicRunes:         50,
		TopicPlaceholder:   "현재 수업 내용",
		SupplementFallback: "📌 '%s' 부분을 다시 한번 살펴보세요.",

		CheckpointWeight:  0.40,
		FormativeWeight:   0.35,
		UnderstandWeight:  0.25,
		EarnThreshold:     60,
		NeutralUnderstand: 50,
		DefaultLevel:      2,
		GapPenalty:        10,
		GapStartProgress:  50,

		ReviewStages: []ReviewStage{
			{Offset: 10 * time.Minute, Label: "10분 후"},
			{Offset: 24 * time.Hour, Label: "1일 후"},
			{Offset: 7 * 24 * time.Hour, Label: "1주일 후"},
			{Offset: 30 * 24 * time.Hour, Label: "1개월 후"},
			{Offset: 180 * 24 * time.Hour, Label: "6개월 후"},
		},
		ConceptFallbackRunes: 60,
		ConceptMaxRunes:      200,

		WeakZoneMinutes:  5,
		FormativeMinutes: 3,
		SpacedRepMinutes: 2,
	}
}

// Validate reports the first inconsistent setting.
func (p Policy) Validate() error {
	var errs []error
	if p.QuizStreak < 1 {
		errs = append(errs, fmt.Errorf("quiz streak must be at least 1, got %d", p.QuizStreak))
	}
	if p.ConfusedThreshold < 1 {
		errs = append(errs, fmt.Errorf("confused threshold must be at least 1, got %d", p.ConfusedThreshold))
	}
	if p.PulseWindow <= 0 || p.AlertCooldown <= 0 {
		errs = append(errs, errors.New("pulse window and alert cooldown must be positive"))
	}
	if sum := p.CheckpointWeight + p.FormativeWeight + p.UnderstandWeight; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("mastery weights must sum to 1, got %.4f", sum))
	}
	if p.EarnThreshold <= 0 || p.EarnThreshold > 100 {
		errs = append(errs, fmt.Errorf("earn threshold must be in (0, 100], got %.1f", p.EarnThreshold))
	}
	if len(p.ReviewStages) == 0 {
		errs = append(errs, errors.New("at least one review stage is required"))
	}
	for i := 1; i < len(p.ReviewStages); i++ {
		if p.ReviewStages[i].Offset <= p.ReviewStages[i-1].Offset {
			errs = append(errs, fmt.Errorf("review stage %d is not later than stage %d", i+1, i))
		}
	}
	if p.ConceptMaxRunes < p.ConceptFallbackRunes {
		errs = append(errs, errors.New("concept max length is shorter than the fallback length"))
	}
	return errors.Join(errs...)
}

// Supplement renders the fallback supplement text for topic.
func (p Policy) Supplement(topic string) string {
	return fmt.Sprintf(p.SupplementFallback, topic)
}
