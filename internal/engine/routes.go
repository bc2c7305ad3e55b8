package engine

import (
	"context"

	"github.com/rebootlabs/mastery/internal/route"
)

// BuildRoute assembles the student's review route for an ended session.
// Building again returns the stored route.
func (e *Engine) BuildRoute(ctx context.Context, studentID, sessionID string) (*route.Route, error) {
	if studentID == "" || sessionID == "" {
		return nil, invalid("student_id and session_id are required")
	}
	return e.routes.Build(ctx, studentID, sessionID)
}

// GetRoute returns a route by ID.
func (e *Engine) GetRoute(ctx context.Context, routeID string) (*route.Route, error) {
	return e.routes.Get(ctx, routeID)
}

// CompleteRouteItem marks a route item done for the student.
func (e *Engine) CompleteRouteItem(ctx context.Context, routeID, studentID string, order int) (*route.Completion, error) {
	res, err := e.routes.CompleteItem(ctx, routeID, studentID, order)
	if err != nil {
		return nil, asValidation(err, route.ErrInvalidOrder, route.ErrNotVisible)
	}
	return res, nil
}

// StudentRoutes returns the routes the student may work on, newest first.
func (e *Engine) StudentRoutes(ctx context.Context, studentID string) ([]route.Route, error) {
	return e.routes.ListForStudent(ctx, studentID)
}
