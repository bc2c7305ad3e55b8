package engine

import (
	"context"

	"github.com/rebootlabs/mastery/internal/store"
)

// Offering seeds a course offering.
type Offering struct {
	ID                 string `json:"id"`
	Title              string `json:"title" validate:"notblank"`
	InstructorID       string `json:"instructor_id" validate:"notblank"`
	RequireRouteReview bool   `json:"require_route_review"`
}

// Session seeds a live session of an offering.
type Session struct {
	ID         string `json:"id"`
	OfferingID string `json:"course_offering_id" validate:"notblank"`
	Title      string `json:"title"`
}

// Skill seeds a catalog skill.
type Skill struct {
	ID       string `json:"id" validate:"notblank"`
	Name     string `json:"name" validate:"notblank"`
	Category string `json:"category"`
}

// Placement seeds a placement-test result.
type Placement struct {
	StudentID  string `json:"student_id" validate:"notblank"`
	OfferingID string `json:"course_offering_id"`
	Level      string `json:"level" validate:"oneof=BEGINNER INTERMEDIATE ADVANCED"`
}

// GapEntry seeds a gap-map entry.
type GapEntry struct {
	StudentID string `json:"student_id" validate:"notblank"`
	SkillID   string `json:"skill_id" validate:"notblank"`
	Status    string `json:"status" validate:"oneof=GAP LEARNING OWNED"`
	Progress  int    `json:"progress" validate:"gte=0,lte=100"`
}

// CreateOffering stores an offering and returns its ID.
func (e *Engine) CreateOffering(ctx context.Context, in Offering) (string, error) {
	if err := e.validate.Struct(in); err != nil {
		return "", err
	}
	rec := &store.OfferingRecord{
		ID:                 in.ID,
		Title:              in.Title,
		InstructorID:       in.InstructorID,
		RequireRouteReview: in.RequireRouteReview,
		CreatedAt:          e.clock.Now(),
	}
	if err := e.courses.CreateOffering(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// CreateSession stores a WAITING session and returns its ID.
func (e *Engine) CreateSession(ctx context.Context, in Session) (string, error) {
	if err := e.validate.Struct(in); err != nil {
		return "", err
	}
	if _, err := e.courses.GetOffering(ctx, in.OfferingID); err != nil {
		return "", err
	}
	rec := &store.SessionRecord{
		ID:               in.ID,
		CourseOfferingID: in.OfferingID,
		Title:            in.Title,
		Status:           store.SessionWaiting,
		CreatedAt:        e.clock.Now(),
	}
	if err := e.courses.CreateSession(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// UpsertSkill stores or replaces a catalog skill.
func (e *Engine) UpsertSkill(ctx context.Context, in Skill) error {
	if err := e.validate.Struct(in); err != nil {
		return err
	}
	return e.skills.UpsertSkill(ctx, store.SkillRecord{ID: in.ID, Name: in.Name, Category: in.Category})
}

// SetGoal links skills to a career goal and assigns the goal to a student.
// An empty studentID only defines the goal.
func (e *Engine) SetGoal(ctx context.Context, goalID, studentID string, skillIDs ...string) error {
	if goalID == "" {
		return invalid("goal_id is required")
	}
	for _, id := range skillIDs {
		if err := e.skills.AddGoalSkill(ctx, goalID, id); err != nil {
			return err
		}
	}
	if studentID == "" {
		return nil
	}
	return e.skills.SetStudentGoal(ctx, studentID, goalID)
}

// AddPlacement records a placement result.
func (e *Engine) AddPlacement(ctx context.Context, in Placement) error {
	if err := e.validate.Struct(in); err != nil {
		return err
	}
	return e.skills.AddPlacement(ctx, store.PlacementRecord{
		StudentID:        in.StudentID,
		CourseOfferingID: in.OfferingID,
		Level:            in.Level,
		CreatedAt:        e.clock.Now(),
	})
}

// Session returns a session by ID.
func (e *Engine) Session(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	return e.courses.GetSession(ctx, sessionID)
}

// SetGapEntry stores a gap-map entry. An OWNED entry is never demoted.
func (e *Engine) SetGapEntry(ctx context.Context, in GapEntry) error {
	if err := e.validate.Struct(in); err != nil {
		return err
	}
	return e.mastery.SetGapEntry(ctx, store.GapEntryRecord{
		StudentID: in.StudentID,
		SkillID:   in.SkillID,
		Status:    in.Status,
		Progress:  in.Progress,
		UpdatedAt: e.clock.Now(),
	})
}
