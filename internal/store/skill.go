package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableSkills           = "skills"
	tableCareerGoalSkills = "career_goal_skills"
	tableStudentGoals     = "student_goals"
	tablePlacements       = "placements"
)

var placementColumns = []string{"student_id", "course_offering_id", "level", "created_at"}

type skillRepo struct {
	s *Store
}

func (r *skillRepo) UpsertSkill(ctx context.Context, rec SkillRecord) error {
	_, err := exec(ctx, r.s.drv, builder.Insert(tableSkills).
		Columns("id", "name", "category").
		Values(rec.ID, rec.Name, rec.Category).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("upsert skill: %w", err)
	}
	return nil
}

func (r *skillRepo) Skills(ctx context.Context, ids ...string) (map[string]SkillRecord, error) {
	out := make(map[string]SkillRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []SkillRecord
	err := scanAll(ctx, r.s.drv, builder.Select("id", "name", "category").
		From(builder.Table(tableSkills)).
		Where(entsql.In("id", anys(ids)...)), &rows)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	for _, sk := range rows {
		out[sk.ID] = sk
	}
	return out, nil
}

func (r *skillRepo) MatchName(ctx context.Context, fragment string) (*SkillRecord, error) {
	var rows []SkillRecord
	err := scanAll(ctx, r.s.drv, builder.Select("id", "name", "category").
		From(builder.Table(tableSkills)).
		Where(entsql.ContainsFold("name", fragment)).
		OrderBy("id").
		Limit(1), &rows)
	if err != nil {
		return nil, fmt.Errorf("match skill name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *skillRepo) AddGoalSkill(ctx context.Context, goalID, skillID string) error {
	_, err := exec(ctx, r.s.drv, builder.Insert(tableCareerGoalSkills).
		Columns("goal_id", "skill_id").
		Values(goalID, skillID).
		OnConflict(
			entsql.ConflictColumns("goal_id", "skill_id"),
			entsql.DoNothing(),
		))
	if err != nil {
		return fmt.Errorf("add goal skill: %w", err)
	}
	return nil
}

func (r *skillRepo) SetStudentGoal(ctx context.Context, studentID, goalID string) error {
	_, err := exec(ctx, r.s.drv, builder.Insert(tableStudentGoals).
		Columns("student_id", "goal_id").
		Values(studentID, goalID).
		OnConflict(
			entsql.ConflictColumns("student_id"),
			entsql.ResolveWithNewValues(),
		))
	if err != nil {
		return fmt.Errorf("set student goal: %w", err)
	}
	return nil
}

func (r *skillRepo) GoalSkillIDs(ctx context.Context, studentID string) ([]string, bool, error) {
	var goals []string
	err := scanAll(ctx, r.s.drv, builder.Select("goal_id").
		From(builder.Table(tableStudentGoals)).
		Where(entsql.EQ("student_id", studentID)), &goals)
	if err != nil {
		return nil, false, fmt.Errorf("load student goal: %w", err)
	}
	if len(goals) == 0 {
		return nil, false, nil
	}

	var ids []string
	err = scanAll(ctx, r.s.drv, builder.Select("skill_id").
		From(builder.Table(tableCareerGoalSkills)).
		Where(entsql.EQ("goal_id", goals[0])).
		OrderBy("skill_id"), &ids)
	if err != nil {
		return nil, true, fmt.Errorf("load goal skills: %w", err)
	}
	return ids, true, nil
}

func (r *skillRepo) AddPlacement(ctx context.Context, rec PlacementRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := exec(ctx, r.s.drv, builder.Insert(tablePlacements).
		Columns(placementColumns...).
		Values(rec.StudentID, rec.CourseOfferingID, rec.Level, rec.CreatedAt.UTC()))
	if err != nil {
		return fmt.Errorf("add placement: %w", err)
	}
	return nil
}

func (r *skillRepo) LatestPlacement(ctx context.Context, studentID string) (*PlacementRecord, error) {
	var out []PlacementRecord
	err := scanAll(ctx, r.s.drv, builder.Select(placementColumns...).
		From(builder.Table(tablePlacements)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1), &out)
	if err != nil {
		return nil, fmt.Errorf("latest placement: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}
