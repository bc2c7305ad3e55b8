// Package weakzone flags students who are struggling during a live session
// and attaches a short remedial explanation to each flag.
package weakzone

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rebootlabs/mastery/internal/store"
)

// Instructor actions on an alert.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionResolve = "RESOLVE"
)

// ErrUnknownAction is returned for an action outside ActionApprove,
// ActionReject and ActionResolve.
var ErrUnknownAction = errors.New("unknown alert action")

var actionStatus = map[string]string{
	ActionApprove: store.AlertMaterialPushed,
	ActionReject:  store.AlertDismissed,
	ActionResolve: store.AlertResolved,
}

// Detail is the trigger evidence stored with an alert.
type Detail struct {
	Topic          string   `json:"topic"`
	QuizIDs        []string `json:"quiz_ids,omitempty"`
	PulseSequences []int64  `json:"pulse_sequences,omitempty"`
	ConfusedCount  int      `json:"confused_count,omitempty"`
}

// Alert is a weak-zone flag for one student in one session.
type Alert struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	TriggerType string    `json:"trigger_type"`
	Family      string    `json:"trigger_family"`
	Detail      Detail    `json:"trigger_detail"`
	Supplement  string    `json:"ai_suggested_content"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromRecord decodes a stored alert.
func FromRecord(rec store.AlertRecord) (*Alert, error) {
	a := &Alert{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		StudentID:   rec.StudentID,
		TriggerType: rec.TriggerType,
		Family:      rec.TriggerFamily,
		Supplement:  rec.AISuggestedContent,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.TriggerDetail != "" {
		if err := json.Unmarshal([]byte(rec.TriggerDetail), &a.Detail); err != nil {
			return nil, fmt.Errorf("decode alert %s detail: %w", rec.ID, err)
		}
	}
	return a, nil
}

// FromRecords decodes a list of stored alerts, preserving order.
func FromRecords(recs []store.AlertRecord) ([]Alert, error) {
	out := make([]Alert, 0, len(recs))
	for _, rec := range recs {
		a, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// FamilyOf maps a trigger type to its cooldown family.
func FamilyOf(triggerType string) string {
	if triggerType == store.TriggerQuizWrong {
		return store.FamilyQuiz
	}
	return store.FamilyPulse
}

// Topic trims s and cuts it to n runes, falling back to placeholder when
// nothing is left.
func Topic(s string, n int, placeholder string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
