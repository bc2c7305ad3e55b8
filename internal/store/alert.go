package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const tableAlerts = "weak_zone_alerts"

var alertColumns = []string{
	"id", "session_id", "student_id", "trigger_type", "trigger_family",
	"trigger_detail", "ai_suggested_content", "status", "created_at", "updated_at",
}

type alertRepo struct {
	s *Store
}

func (r *alertRepo) CreateIfClear(ctx context.Context, rec *AlertRecord, since time.Time) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = AlertDetected
	}
	if rec.TriggerDetail == "" {
		rec.TriggerDetail = "{}"
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	created := false
	err := r.s.withTx(ctx, func(tx dialect.Tx) error {
		n, err := scanInt(ctx, tx, builder.Select().Count().
			From(builder.Table(tableAlerts)).
			Where(entsql.And(
				entsql.EQ("session_id", rec.SessionID),
				entsql.EQ("student_id", rec.StudentID),
				entsql.EQ("trigger_family", rec.TriggerFamily),
				entsql.GTE("created_at", since.UTC()),
			)))
		if err != nil {
			return fmt.Errorf("check alert cooldown: %w", err)
		}
		if n > 0 {
			return nil
		}
		_, err = exec(ctx, tx, builder.Insert(tableAlerts).
			Columns(alertColumns...).
			Values(rec.ID, rec.SessionID, rec.StudentID, rec.TriggerType, rec.TriggerFamily,
				rec.TriggerDetail, rec.AISuggestedContent, rec.Status, rec.CreatedAt, rec.UpdatedAt.UTC()))
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}

func (r *alertRepo) Get(ctx context.Context, id string) (*AlertRecord, error) {
	var out []AlertRecord
	err := scanAll(ctx, r.s.drv, builder.Select(alertColumns...).
		From(builder.Table(tableAlerts)).
		Where(entsql.EQ("id", id)), &out)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return &out[0], nil
}

func (r *alertRepo) SetContent(ctx context.Context, id, content string, at time.Time) error {
	return r.set(ctx, id, "ai_suggested_content", content, at)
}

func (r *alertRepo) SetStatus(ctx context.Context, id, status string, at time.Time) error {
	return r.set(ctx, id, "status", status, at)
}

func (r *alertRepo) set(ctx context.Context, id, column, value string, at time.Time) error {
	n, err := exec(ctx, r.s.drv, builder.Update(tableAlerts).
		Set(column, value).
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("update alert %s: %w", column, err)
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *alertRepo) ForStudentSession(ctx context.Context, sessionID, studentID string) ([]AlertRecord, error) {
	var out []AlertRecord
	err := scanAll(ctx, r.s.drv, builder.Select(alertColumns...).
		From(builder.Table(tableAlerts)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("student_id", studentID),
		)).
		OrderBy("created_at"), &out)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return out, nil
}

func (r *alertRepo) WithStatus(ctx context.Context, status string, sessionIDs ...string) ([]AlertRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var out []AlertRecord
	err := scanAll(ctx, r.s.drv, builder.Select(alertColumns...).
		From(builder.Table(tableAlerts)).
		Where(entsql.And(
			entsql.EQ("status", status),
			entsql.In("session_id", anys(sessionIDs)...),
		)).
		OrderBy(entsql.Desc("created_at")), &out)
	if err != nil {
		return nil, fmt.Errorf("alerts with status: %w", err)
	}
	return out, nil
}
