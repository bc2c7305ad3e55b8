package mastery

import (
	"math"

	"github.com/rebootlabs/mastery/internal/policy"
)

// Inputs are the raw tallies a composite is computed from.
type Inputs struct {
	QuizCorrect     int
	QuizTotal       int
	FormativePcts   []float64
	PulseUnderstand int
	PulseConfused   int
}

// Scores is a weighted composite. Every value is on a 0-100 scale and
// rounded to one decimal.
type Scores struct {
	Checkpoint float64 `json:"checkpoint_score"`
	Formative  float64 `json:"formative_score"`
	Understand float64 `json:"understand_score"`
	Total      float64 `json:"total_score"`
	IsEarned   bool    `json:"is_earned"`
}

// Compute applies the policy weights to in. IsEarned is decided on the
// rounded total so a stored block always satisfies total >= threshold.
func Compute(in Inputs, p policy.Policy) Scores {
	checkpoint := 0.0
	if in.QuizTotal > 0 {
		checkpoint = 100 * float64(in.QuizCorrect) / float64(in.QuizTotal)
	}

	formative := 0.0
	if len(in.FormativePcts) > 0 {
		sum := 0.0
		for _, pct := range in.FormativePcts {
			sum += pct
		}
		formative = sum / float64(len(in.FormativePcts))
	}

	understand := p.NeutralUnderstand
	if n := in.PulseUnderstand + in.PulseConfused; n > 0 {
		understand = 100 * float64(in.PulseUnderstand) / float64(n)
	}

	checkpoint, formative, understand = clamp(checkpoint), clamp(formative), clamp(understand)
	total := clamp(p.CheckpointWeight*checkpoint + p.FormativeWeight*formative + p.UnderstandWeight*understand)

	s := Scores{
		Checkpoint: round1(checkpoint),
		Formative:  round1(formative),
		Understand: round1(understand),
		Total:      round1(total),
	}
	s.IsEarned = s.Total >= p.EarnThreshold
	return s
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
