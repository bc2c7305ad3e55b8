package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const tableReviewItems = "review_items"

var reviewItemColumns = []string{
	"id", "student_id", "concept_name", "source_session_id", "review_question",
	"review_answer", "review_options", "schedule", "current_review", "created_at",
}

type reviewRepo struct {
	s *Store
}

func (r *reviewRepo) CreateIfAbsent(ctx context.Context, rec *ReviewItemRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ReviewOptions == "" {
		rec.ReviewOptions = "[]"
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	n, err := exec(ctx, r.s.drv, builder.Insert(tableReviewItems).
		Columns(reviewItemColumns...).
		Values(rec.ID, rec.StudentID, rec.ConceptName, rec.SourceSessionID, rec.ReviewQuestion,
			rec.ReviewAnswer, rec.ReviewOptions, rec.Schedule, rec.CurrentReview, rec.CreatedAt).
		OnConflict(
			entsql.ConflictColumns("student_id", "concept_name"),
			entsql.DoNothing(),
		))
	if err != nil {
		return false, fmt.Errorf("create review item: %w", err)
	}
	return n > 0, nil
}

func (r *reviewRepo) Get(ctx context.Context, id string) (*ReviewItemRecord, error) {
	return r.one(ctx, r.s.drv, entsql.EQ("id", id), "review item "+id)
}

func (r *reviewRepo) GetByConcept(ctx context.Context, studentID, conceptName string) (*ReviewItemRecord, error) {
	return r.one(ctx, r.s.drv, entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("concept_name", conceptName),
	), "review item for "+conceptName)
}

func (r *reviewRepo) one(ctx context.Context, q dialect.ExecQuerier, p *entsql.Predicate, what string) (*ReviewItemRecord, error) {
	var out []ReviewItemRecord
	err := scanAll(ctx, q, builder.Select(reviewItemColumns...).
		From(builder.Table(tableReviewItems)).
		Where(p), &out)
	if err != nil {
		return nil, fmt.Errorf("get review item: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return &out[0], nil
}

func (r *reviewRepo) ConceptNames(ctx context.Context, studentID string) ([]string, error) {
	var out []string
	err := scanAll(ctx, r.s.drv, builder.Select("concept_name").
		From(builder.Table(tableReviewItems)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("created_at"), &out)
	if err != nil {
		return nil, fmt.Errorf("list concept names: %w", err)
	}
	return out, nil
}

func (r *reviewRepo) Update(ctx context.Context, id string, fn func(*ReviewItemRecord) error) (*ReviewItemRecord, error) {
	var item *ReviewItemRecord
	err := r.s.withTx(ctx, func(tx dialect.Tx) error {
		var err error
		item, err = r.one(ctx, tx, entsql.EQ("id", id), "review item "+id)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		_, err = exec(ctx, tx, builder.Update(tableReviewItems).
			Set("schedule", item.Schedule).
			Set("current_review", item.CurrentReview).
			Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("save review item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *reviewRepo) ForStudent(ctx context.Context, studentID string) ([]ReviewItemRecord, error) {
	return r.list(ctx, entsql.EQ("student_id", studentID))
}

func (r *reviewRepo) ForSession(ctx context.Context, studentID, sessionID string) ([]ReviewItemRecord, error) {
	return r.list(ctx, entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.EQ("source_session_id", sessionID),
	))
}

func (r *reviewRepo) list(ctx context.Context, p *entsql.Predicate) ([]ReviewItemRecord, error) {
	var out []ReviewItemRecord
	err := scanAll(ctx, r.s.drv, builder.Select(reviewItemColumns...).
		From(builder.Table(tableReviewItems)).
		Where(p).
		OrderBy("created_at", "concept_name"), &out)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	return out, nil
}
