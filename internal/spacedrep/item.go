// Package spacedrep schedules review of concepts a student missed on a
// post-session assessment. Every item follows the same fixed schedule and
// advances one stage per correct recall.
package spacedrep

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rebootlabs/mastery/internal/store"
)

// Item is one concept under review for one student.
type Item struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	ConceptName     string    `json:"concept_name"`
	SourceSessionID string    `json:"source_session_id"`
	Question        string    `json:"review_question"`
	Answer          string    `json:"review_answer"`
	Options         []string  `json:"review_options"`
	Schedule        Schedule  `json:"schedule"`
	CurrentReview   int       `json:"current_review"`
	CreatedAt       time.Time `json:"created_at"`
}

// Status describes an item's review state for display.
type Status string

const (
	StatusNotDue   Status = "not_due"
	StatusDue      Status = "due"
	StatusFinished Status = "finished"
)

// Status returns the item's review status at now.
func (it *Item) Status(now time.Time) Status {
	switch {
	case it.Schedule.Finished():
		return StatusFinished
	case it.Schedule.IsDue(now):
		return StatusDue
	default:
		return StatusNotDue
	}
}

// NextStage returns the first incomplete stage, or nil when finished.
func (it *Item) NextStage() *Stage {
	i := it.Schedule.Next()
	if i < 0 {
		return nil
	}
	st := it.Schedule[i]
	return &st
}

// FromRecord decodes a stored item.
func FromRecord(rec store.ReviewItemRecord) (*Item, error) {
	it := &Item{
		ID:              rec.ID,
		StudentID:       rec.StudentID,
		ConceptName:     rec.ConceptName,
		SourceSessionID: rec.SourceSessionID,
		Question:        rec.ReviewQuestion,
		Answer:          rec.ReviewAnswer,
		CurrentReview:   rec.CurrentReview,
		CreatedAt:       rec.CreatedAt,
	}
	if err := decodeJSON(rec.Schedule, &it.Schedule); err != nil {
		return nil, fmt.Errorf("decode item %s schedule: %w", rec.ID, err)
	}
	if err := decodeJSON(rec.ReviewOptions, &it.Options); err != nil {
		return nil, fmt.Errorf("decode item %s options: %w", rec.ID, err)
	}
	return it, nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ConceptKey picks the dedup key of a missed question: the concept tag when
// non-empty, else the first fallbackRunes of the question text. Keys are
// compared as exact strings, so neither input is trimmed. The result is
// capped at maxRunes.
func ConceptKey(tag, question string, fallbackRunes, maxRunes int) string {
	key := tag
	if key == "" {
		key = truncate(question, fallbackRunes)
	}
	return truncate(key, maxRunes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
