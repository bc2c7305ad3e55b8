// Package route assembles the ordered review plan a student works through
// after a session and carries it through instructor approval.
package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rebootlabs/mastery/internal/store"
)

// ItemType names where a route item comes from.
type ItemType string

const (
	ItemWeakZone  ItemType = "WEAK_ZONE"
	ItemFormative ItemType = "FORMATIVE"
	ItemSpacedRep ItemType = "SPACED_REP"
)

// Instructor actions on a suggested route.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionModify  = "MODIFY"
)

var (
	ErrUnknownAction = errors.New("unknown route action")
	ErrNotSuggested  = errors.New("route is not awaiting review")
	ErrInvalidOrder  = errors.New("route item order not found")
	ErrNoItems       = errors.New("modified route has no items")
	ErrNotVisible    = errors.New("route is not open to the student")
)

// Item is one step of a route. Orders are 1-based.
type Item struct {
	Order      int      `json:"order"`
	Type       ItemType `json:"type" validate:"required,oneof=WEAK_ZONE FORMATIVE SPACED_REP"`
	Title      string   `json:"title" validate:"required"`
	RefID      string   `json:"ref_id,omitempty"`
	Content    string   `json:"content,omitempty"`
	EstMinutes int      `json:"est_minutes" validate:"gte=0"`
}

// Route is a student's review plan for one session.
type Route struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	SessionID       string     `json:"session_id"`
	Items           []Item     `json:"items"`
	Status          string     `json:"status"`
	CompletedItems  []int      `json:"completed_items"`
	TotalEstMinutes int        `json:"total_est_minutes"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}

// Progress is the rounded share of completed items, 0 for an empty route.
func (r *Route) Progress() int {
	return progress(len(r.CompletedItems), len(r.Items))
}

func progress(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Has reports whether the route contains an item with order.
func (r *Route) Has(order int) bool {
	return slices.ContainsFunc(r.Items, func(it Item) bool { return it.Order == order })
}

// VisibleToStudent reports whether the student may work on the route.
func VisibleToStudent(status string) bool {
	switch status {
	case store.RouteAutoApproved, store.RouteApproved, store.RouteModified:
		return true
	}
	return false
}

// Minutes sums the estimated minutes of items.
func Minutes(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.EstMinutes
	}
	return total
}

// Renumber fills zero orders with the item's 1-based position.
func Renumber(items []Item) []Item {
	out := slices.Clone(items)
	for i := range out {
		if out[i].Order == 0 {
			out[i].Order = i + 1
		}
	}
	return out
}

// FromRecord decodes a stored route.
func FromRecord(rec store.RouteRecord) (*Route, error) {
	r := &Route{
		ID:              rec.ID,
		StudentID:       rec.StudentID,
		SessionID:       rec.SessionID,
		Status:          rec.Status,
		TotalEstMinutes: rec.TotalEstMinutes,
		CreatedAt:       rec.CreatedAt,
		DecidedAt:       rec.DecidedAt,
		Items:           []Item{},
		CompletedItems:  []int{},
	}
	if err := decode(rec.Items, &r.Items); err != nil {
		return nil, fmt.Errorf("decode route %s items: %w", rec.ID, err)
	}
	if err := decode(rec.CompletedItems, &r.CompletedItems); err != nil {
		return nil, fmt.Errorf("decode route %s completed items: %w", rec.ID, err)
	}
	return r, nil
}

func decode(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
