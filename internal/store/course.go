package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const (
	tableOfferings = "course_offerings"
	tableSessions  = "live_sessions"
)

var (
	offeringColumns = []string{"id", "title", "instructor_id", "require_route_review", "created_at"}
	sessionColumns  = []string{"id", "course_offering_id", "title", "status", "started_at", "ended_at", "created_at"}
)

type courseRepo struct {
	s *Store
}

func (r *courseRepo) CreateOffering(ctx context.Context, rec *OfferingRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := exec(ctx, r.s.drv, builder.Insert(tableOfferings).
		Columns(offeringColumns...).
		Values(rec.ID, rec.Title, rec.InstructorID, rec.RequireRouteReview, rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

func (r *courseRepo) GetOffering(ctx context.Context, id string) (*OfferingRecord, error) {
	var out []OfferingRecord
	err := scanAll(ctx, r.s.drv, builder.Select(offeringColumns...).
		From(builder.Table(tableOfferings)).
		Where(entsql.EQ("id", id)), &out)
	if err != nil {
		return nil, fmt.Errorf("get offering: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("offering %s: %w", id, ErrNotFound)
	}
	return &out[0], nil
}

func (r *courseRepo) OfferingsByInstructor(ctx context.Context, instructorID string) ([]OfferingRecord, error) {
	var out []OfferingRecord
	err := scanAll(ctx, r.s.drv, builder.Select(offeringColumns...).
		From(builder.Table(tableOfferings)).
		Where(entsql.EQ("instructor_id", instructorID)).
		OrderBy("created_at"), &out)
	if err != nil {
		return nil, fmt.Errorf("offerings by instructor: %w", err)
	}
	return out, nil
}

func (r *courseRepo) CreateSession(ctx context.Context, rec *SessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = SessionWaiting
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := exec(ctx, r.s.drv, builder.Insert(tableSessions).
		Columns(sessionColumns...).
		Values(rec.ID, rec.CourseOfferingID, rec.Title, rec.Status,
			utcPtr(rec.StartedAt), utcPtr(rec.EndedAt), rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *courseRepo) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var out []SessionRecord
	err := scanAll(ctx, r.s.drv, builder.Select(sessionColumns...).
		From(builder.Table(tableSessions)).
		Where(entsql.EQ("id", id)), &out)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return &out[0], nil
}

func (r *courseRepo) SetSessionStatus(ctx context.Context, id, status string, at time.Time) error {
	upd := builder.Update(tableSessions).
		Set("status", status).
		Where(entsql.EQ("id", id))
	switch status {
	case SessionLive:
		upd.Set("started_at", at.UTC())
	case SessionEnded:
		upd.Set("ended_at", at.UTC())
	}
	n, err := exec(ctx, r.s.drv, upd)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *courseRepo) EndedSessions(ctx context.Context, offeringIDs ...string) ([]SessionRecord, error) {
	if len(offeringIDs) == 0 {
		return nil, nil
	}
	var out []SessionRecord
	err := scanAll(ctx, r.s.drv, builder.Select(sessionColumns...).
		From(builder.Table(tableSessions)).
		Where(entsql.And(
			entsql.In("course_offering_id", anys(offeringIDs)...),
			entsql.EQ("status", SessionEnded),
		)).
		OrderBy("created_at"), &out)
	if err != nil {
		return nil, fmt.Errorf("ended sessions: %w", err)
	}
	return out, nil
}

func (r *courseRepo) PurgeSession(ctx context.Context, id string) error {
	return r.s.withTx(ctx, func(tx dialect.Tx) error {
		// Answers hang off submissions, so they go first.
		var subs []string
		err := scanAll(ctx, tx, builder.Select("id").
			From(builder.Table(tableFormativeSubmissions)).
			Where(entsql.EQ("session_id", id)), &subs)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		if len(subs) > 0 {
			if _, err := exec(ctx, tx, builder.Delete(tableFormativeAnswers).
				Where(entsql.In("submission_id", anys(subs)...))); err != nil {
				return fmt.Errorf("purge formative answers: %w", err)
			}
		}

		for _, table := range []string{
			tableQuizResponses, tablePulses, tableTranscriptChunks,
			tableAlerts, tableRoutes, tableFormativeSubmissions,
		} {
			if _, err := exec(ctx, tx, builder.Delete(table).
				Where(entsql.EQ("session_id", id))); err != nil {
				return fmt.Errorf("purge %s: %w", table, err)
			}
		}

		n, err := exec(ctx, tx, builder.Delete(tableSessions).Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("purge session: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// utcPtr converts an optional time to a bind value (nil or UTC).
func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
