package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const (
	tableSkillBlocks = "skill_blocks"
	tableGapMap      = "gap_map"
)

var (
	skillBlockColumns = []string{
		"id", "student_id", "skill_id", "course_offering_id", "level",
		"checkpoint_score", "formative_score", "understand_score", "total_score",
		"is_earned", "earned_at", "updated_at",
	}
	gapEntryColumns = []string{"student_id", "skill_id", "status", "progress", "updated_at"}
)

type masteryRepo struct {
	s *Store
}

func (r *masteryRepo) UpdateSkillBlock(ctx context.Context, studentID, skillID, offeringID string,
	fn func(b *SkillBlockRecord, exists bool) error) (*SkillBlockRecord, error) {
	var saved *SkillBlockRecord
	err := r.s.withTx(ctx, func(tx dialect.Tx) error {
		var rows []SkillBlockRecord
		err := scanAll(ctx, tx, builder.Select(skillBlockColumns...).
			From(builder.Table(tableSkillBlocks)).
			Where(entsql.And(
				entsql.EQ("student_id", studentID),
				entsql.EQ("skill_id", skillID),
				entsql.EQ("course_offering_id", offeringID),
			)), &rows)
		if err != nil {
			return fmt.Errorf("load skill block: %w", err)
		}

		exists := len(rows) > 0
		b := &SkillBlockRecord{
			ID:               uuid.NewString(),
			StudentID:        studentID,
			SkillID:          skillID,
			CourseOfferingID: offeringID,
		}
		if exists {
			b = &rows[0]
		}
		if err := fn(b, exists); err != nil {
			return err
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = time.Now()
		}
		b.UpdatedAt = b.UpdatedAt.UTC()

		if exists {
			_, err = exec(ctx, tx, builder.Update(tableSkillBlocks).
				Set("level", b.Level).
				Set("checkpoint_score", b.CheckpointScore).
				Set("formative_score", b.FormativeScore).
				Set("understand_score", b.UnderstandScore).
				Set("total_score", b.TotalScore).
				Set("is_earned", b.IsEarned).
				Set("earned_at", utcPtr(b.EarnedAt)).
				Set("updated_at", b.UpdatedAt).
				Where(entsql.EQ("id", b.ID)))
		} else {
			_, err = exec(ctx, tx, builder.Insert(tableSkillBlocks).
				Columns(skillBlockColumns...).
				Values(b.ID, b.StudentID, b.SkillID, b.CourseOfferingID, b.Level,
					b.CheckpointScore, b.FormativeScore, b.UnderstandScore, b.TotalScore,
					b.IsEarned, utcPtr(b.EarnedAt), b.UpdatedAt))
		}
		if err != nil {
			return fmt.Errorf("save skill block: %w", err)
		}
		saved = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *masteryRepo) SkillBlocks(ctx context.Context, studentID string) ([]SkillBlockRecord, error) {
	var out []SkillBlockRecord
	err := scanAll(ctx, r.s.drv, builder.Select(skillBlockColumns...).
		From(builder.Table(tableSkillBlocks)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("skill_id", "course_offering_id"), &out)
	if err != nil {
		return nil, fmt.Errorf("list skill blocks: %w", err)
	}
	return out, nil
}

func (r *masteryRepo) StudentSkillIDs(ctx context.Context, studentID string) ([]string, error) {
	seen := make(map[string]bool)
	for _, table := range []string{tableGapMap, tableSkillBlocks} {
		var ids []string
		err := scanAll(ctx, r.s.drv, builder.Select("skill_id").
			From(builder.Table(table)).
			Where(entsql.EQ("student_id", studentID)), &ids)
		if err != nil {
			return nil, fmt.Errorf("skills from %s: %w", table, err)
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *masteryRepo) PromoteOwned(ctx context.Context, studentID, skillID string, progress int, at time.Time) error {
	_, err := exec(ctx, r.s.drv, builder.Insert(tableGapMap).
		Columns(gapEntryColumns...).
		Values(studentID, skillID, GapStatusOwned, progress, at.UTC()).
		OnConflict(
			entsql.ConflictColumns("student_id", "skill_id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("promote gap entry: %w", err)
	}
	return nil
}

func (r *masteryRepo) SetGapEntry(ctx context.Context, rec GapEntryRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	return r.s.withTx(ctx, func(tx dialect.Tx) error {
		var current []string
		err := scanAll(ctx, tx, builder.Select("status").
			From(builder.Table(tableGapMap)).
			Where(entsql.And(
				entsql.EQ("student_id", rec.StudentID),
				entsql.EQ("skill_id", rec.SkillID),
			)), &current)
		if err != nil {
			return fmt.Errorf("load gap entry: %w", err)
		}
		if len(current) > 0 && current[0] == GapStatusOwned && rec.Status != GapStatusOwned {
			return nil
		}
		_, err = exec(ctx, tx, builder.Insert(tableGapMap).
			Columns(gapEntryColumns...).
			Values(rec.StudentID, rec.SkillID, rec.Status, rec.Progress, rec.UpdatedAt.UTC()).
			OnConflict(
				entsql.ConflictColumns("student_id", "skill_id"),
				entsql.ResolveWithNewValues(),
			))
		if err != nil {
			return fmt.Errorf("save gap entry: %w", err)
		}
		return nil
	})
}

func (r *masteryRepo) GapEntries(ctx context.Context, studentID string) ([]GapEntryRecord, error) {
	var out []GapEntryRecord
	err := scanAll(ctx, r.s.drv, builder.Select(gapEntryColumns...).
		From(builder.Table(tableGapMap)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("skill_id"), &out)
	if err != nil {
		return nil, fmt.Errorf("list gap entries: %w", err)
	}
	return out, nil
}
