package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const tableRoutes = "review_routes"

var routeColumns = []string{
	"id", "student_id", "session_id", "items", "status", "completed_items",
	"total_est_minutes", "created_at", "decided_at",
}

type routeRepo struct {
	s *Store
}

func (r *routeRepo) CreateIfAbsent(ctx context.Context, rec *RouteRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Items == "" {
		rec.Items = "[]"
	}
	if rec.CompletedItems == "" {
		rec.CompletedItems = "[]"
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	n, err := exec(ctx, r.s.drv, builder.Insert(tableRoutes).
		Columns(routeColumns...).
		Values(rec.ID, rec.StudentID, rec.SessionID, rec.Items, rec.Status, rec.CompletedItems,
			rec.TotalEstMinutes, rec.CreatedAt, utcPtr(rec.DecidedAt)).
		OnConflict(
			entsql.ConflictColumns("student_id", "session_id"),
			entsql.DoNothing(),
		))
	if err != nil {
		return false, fmt.Errorf("create route: %w", err)
	}
	return n > 0, nil
}

func (r *routeRepo) Get(ctx context.Context, id string) (*RouteRecord, error) {
	return r.one(ctx, r.s.drv, entsql.EQ("id", id), "route "+id)
}

func (r *routeRepo) GetFor(ctx context.Context, studentID, sessionID string) (*RouteRecord, error) {
	return r.one(ctx, r.s.drv, entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("session_id", sessionID),
	), "route for session "+sessionID)
}

func (r *routeRepo) one(ctx context.Context, q dialect.ExecQuerier, p *entsql.Predicate, what string) (*RouteRecord, error) {
	var out []RouteRecord
	err := scanAll(ctx, q, builder.Select(routeColumns...).
		From(builder.Table(tableRoutes)).
		Where(p), &out)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return &out[0], nil
}

func (r *routeRepo) Update(ctx context.Context, id string, fn func(*RouteRecord) error) (*RouteRecord, error) {
	var rt *RouteRecord
	err := r.s.withTx(ctx, func(tx dialect.Tx) error {
		var err error
		rt, err = r.one(ctx, tx, entsql.EQ("id", id), "route "+id)
		if err != nil {
			return err
		}
		if err := fn(rt); err != nil {
			return err
		}
		_, err = exec(ctx, tx, builder.Update(tableRoutes).
			Set("items", rt.Items).
			Set("status", rt.Status).
			Set("completed_items", rt.CompletedItems).
			Set("total_est_minutes", rt.TotalEstMinutes).
			Set("decided_at", utcPtr(rt.DecidedAt)).
			Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("save route: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *routeRepo) ForStudent(ctx context.Context, studentID string, statuses ...string) ([]RouteRecord, error) {
	p := entsql.EQ("student_id", studentID)
	if len(statuses) > 0 {
		p = entsql.And(p, entsql.In("status", anys(statuses)...))
	}
	return r.list(ctx, p)
}

func (r *routeRepo) WithStatus(ctx context.Context, status string, sessionIDs ...string) ([]RouteRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, entsql.And(
		entsql.EQ("status", status),
		entsql.In("session_id", anys(sessionIDs)...),
	))
}

func (r *routeRepo) list(ctx context.Context, p *entsql.Predicate) ([]RouteRecord, error) {
	var out []RouteRecord
	err := scanAll(ctx, r.s.drv, builder.Select(routeColumns...).
		From(builder.Table(tableRoutes)).
		Where(p).
		OrderBy(entsql.Desc("created_at")), &out)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return out, nil
}
