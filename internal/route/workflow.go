package route

import (
	"context"
	"fmt"
	"slices"

	"github.com/rebootlabs/mastery/internal/store"
)

var actionStatus = map[string]string{
	ActionApprove: store.RouteApproved,
	ActionReject:  store.RouteRejected,
	ActionModify:  store.RouteModified,
}

// Get returns a route by ID.
func (b *Builder) Get(ctx context.Context, routeID string) (*Route, error) {
	rec, err := b.routes.Get(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return FromRecord(*rec)
}

// Apply records an instructor decision on a suggested route. MODIFY
// replaces the items, numbering any without an order, recomputes the
// estimated minutes and keeps only completions whose order survives.
func (b *Builder) Apply(ctx context.Context, routeID, action string, items []Item) (*Route, error) {
	status, ok := actionStatus[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if action == ActionModify && len(items) == 0 {
		return nil, ErrNoItems
	}

	now := b.clock.Now()
	rec, err := b.routes.Update(ctx, routeID, func(r *store.RouteRecord) error {
		if r.Status != store.RouteSuggested {
			return fmt.Errorf("%w: route %s is %s", ErrNotSuggested, r.ID, r.Status)
		}
		if action == ActionModify {
			items = Renumber(items)
			raw, err := encode(items)
			if err != nil {
				return fmt.Errorf("encode route items: %w", err)
			}
			r.Items = raw
			r.TotalEstMinutes = Minutes(items)

			rt, err := FromRecord(*r)
			if err != nil {
				return err
			}
			kept := slices.DeleteFunc(rt.CompletedItems, func(order int) bool { return !rt.Has(order) })
			if r.CompletedItems, err = encode(kept); err != nil {
				return fmt.Errorf("encode completed items: %w", err)
			}
		}
		r.Status = status
		r.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("route decided", "route_id", routeID, "action", action, "status", status)
	return FromRecord(*rec)
}

// Completion is the state of a route after a student finished an item.
type Completion struct {
	CompletedItems []int `json:"completed_items"`
	Progress       int   `json:"progress"`
}

// CompleteItem marks the item with order as done. Completing an item twice
// changes nothing. Only routes open to the student accept completions.
func (b *Builder) CompleteItem(ctx context.Context, routeID, studentID string, order int) (*Completion, error) {
	if order <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}
	var out Completion
	_, err := b.routes.Update(ctx, routeID, func(r *store.RouteRecord) error {
		if r.StudentID != studentID {
			return fmt.Errorf("route %s for student %s: %w", routeID, studentID, store.ErrNotFound)
		}
		if !VisibleToStudent(r.Status) {
			return fmt.Errorf("%w: route %s is %s", ErrNotVisible, r.ID, r.Status)
		}
		rt, err := FromRecord(*r)
		if err != nil {
			return err
		}
		if !rt.Has(order) {
			return fmt.Errorf("%w: %d", ErrInvalidOrder, order)
		}
		if !slices.Contains(rt.CompletedItems, order) {
			rt.CompletedItems = append(rt.CompletedItems, order)
		}
		raw, err := encode(rt.CompletedItems)
		if err != nil {
			return fmt.Errorf("encode completed items: %w", err)
		}
		r.CompletedItems = raw
		out = Completion{CompletedItems: rt.CompletedItems, Progress: rt.Progress()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListForStudent returns the routes the student may work on, newest first.
func (b *Builder) ListForStudent(ctx context.Context, studentID string) ([]Route, error) {
	recs, err := b.routes.ForStudent(ctx, studentID,
		store.RouteAutoApproved, store.RouteApproved, store.RouteModified)
	if err != nil {
		return nil, err
	}
	return fromRecords(recs)
}

// Suggested returns routes of the sessions awaiting review, newest first.
func (b *Builder) Suggested(ctx context.Context, sessionIDs ...string) ([]Route, error) {
	recs, err := b.routes.WithStatus(ctx, store.RouteSuggested, sessionIDs...)
	if err != nil {
		return nil, err
	}
	return fromRecords(recs)
}

func fromRecords(recs []store.RouteRecord) ([]Route, error) {
	out := make([]Route, 0, len(recs))
	for _, rec := range recs {
		r, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}
