package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rebootlabs/mastery/internal/route"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/weakzone"
)

// Suggestion kinds awaiting an instructor decision.
const (
	SuggestionWeakZone    = "WEAK_ZONE"
	SuggestionReviewRoute = "REVIEW_ROUTE"
)

const suggestionDetailRunes = 100

// Suggestion is an item in the instructor's approval queue.
type Suggestion struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	SessionID string    `json:"session_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SuggestionAction is an instructor decision on a suggestion. Items apply
// to MODIFY on a review route only.
type SuggestionAction struct {
	Type   string       `json:"type" validate:"oneof=WEAK_ZONE REVIEW_ROUTE"`
	ID     string       `json:"id" validate:"notblank"`
	Action string       `json:"action" validate:"oneof=APPROVE REJECT RESOLVE MODIFY"`
	Items  []route.Item `json:"items" validate:"omitempty,dive"`
}

// PendingSuggestions returns DETECTED alerts and SUGGESTED routes of the
// ended sessions of the instructor's offerings, newest first.
func (e *Engine) PendingSuggestions(ctx context.Context, instructorID string) ([]Suggestion, error) {
	sessions, err := e.endedSessions(ctx, instructorID)
	if err != nil || len(sessions) == 0 {
		return []Suggestion{}, err
	}
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out, err := e.pendingAlerts(ctx, ids)
	if err != nil {
		return nil, err
	}
	routes, err := e.routes.Suggested(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for _, rt := range routes {
		out = append(out, Suggestion{
			Type:      SuggestionReviewRoute,
			ID:        rt.ID,
			StudentID: rt.StudentID,
			SessionID: rt.SessionID,
			Detail:    fmt.Sprintf("%s 복습 루트 (%d분)", sessions[rt.SessionID].Title, rt.TotalEstMinutes),
			CreatedAt: rt.CreatedAt,
		})
	}
	sortSuggestions(out)
	return out, nil
}

// PendingWeakZoneAlerts is PendingSuggestions restricted to alerts.
func (e *Engine) PendingWeakZoneAlerts(ctx context.Context, instructorID string) ([]Suggestion, error) {
	sessions, err := e.endedSessions(ctx, instructorID)
	if err != nil || len(sessions) == 0 {
		return []Suggestion{}, err
	}
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out, err := e.pendingAlerts(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortSuggestions(out)
	return out, nil
}

func (e *Engine) pendingAlerts(ctx context.Context, sessionIDs []string) ([]Suggestion, error) {
	recs, err := e.alerts.WithStatus(ctx, store.AlertDetected, sessionIDs...)
	if err != nil {
		return nil, err
	}
	alerts, err := weakzone.FromRecords(recs)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, Suggestion{
			Type:      SuggestionWeakZone,
			ID:        a.ID,
			StudentID: a.StudentID,
			SessionID: a.SessionID,
			Detail:    clip(a.Supplement, suggestionDetailRunes),
			CreatedAt: a.CreatedAt,
		})
	}
	return out, nil
}

func (e *Engine) endedSessions(ctx context.Context, instructorID string) (map[string]store.SessionRecord, error) {
	if instructorID == "" {
		return nil, invalid("instructor_id is required")
	}
	offerings, err := e.courses.OfferingsByInstructor(ctx, instructorID)
	if err != nil || len(offerings) == 0 {
		return nil, err
	}
	ids := make([]string, len(offerings))
	for i, o := range offerings {
		ids[i] = o.ID
	}
	sessions, err := e.courses.EndedSessions(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]store.SessionRecord, len(sessions))
	for _, s := range sessions {
		out[s.ID] = s
	}
	return out, nil
}

func sortSuggestions(s []Suggestion) {
	slices.SortStableFunc(s, func(a, b Suggestion) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ApplySuggestionAction records an instructor decision on a weak-zone alert
// or a suggested review route.
func (e *Engine) ApplySuggestionAction(ctx context.Context, in SuggestionAction) error {
	if err := e.validate.Struct(in); err != nil {
		return err
	}
	switch in.Type {
	case SuggestionWeakZone:
		_, err := e.detector.Apply(ctx, in.ID, in.Action)
		return asValidation(err, weakzone.ErrUnknownAction)
	default:
		_, err := e.routes.Apply(ctx, in.ID, in.Action, in.Items)
		return asValidation(err, route.ErrUnknownAction, route.ErrNotSuggested, route.ErrNoItems)
	}
}
