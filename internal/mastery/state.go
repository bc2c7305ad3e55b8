// Package mastery scores how well a student has mastered each skill of a
// course offering and keeps the student's gap map in step with the result.
package mastery

// MasteryState is a skill block's earned state.
type MasteryState string

const (
	StateNew       MasteryState = "new" // no block yet
	StateNotEarned MasteryState = "not_earned"
	StateEarned    MasteryState = "earned"
)

func stateOf(exists, earned bool) MasteryState {
	switch {
	case !exists:
		return StateNew
	case earned:
		return StateEarned
	default:
		return StateNotEarned
	}
}

// StateTransition records a change of earned state for display and
// logging.
type StateTransition struct {
	SkillID   string       `json:"skill_id"`
	SkillName string       `json:"skill_name"`
	From      MasteryState `json:"from"`
	To        MasteryState `json:"to"`
}
