package engine

import (
	"context"

	"github.com/rebootlabs/mastery/internal/mastery"
)

// SyncMastery recomputes the student's skill blocks for the offering.
func (e *Engine) SyncMastery(ctx context.Context, studentID, offeringID string) ([]mastery.Result, error) {
	if studentID == "" || offeringID == "" {
		return nil, invalid("student_id and course_offering_id are required")
	}
	return e.scorer.Sync(ctx, studentID, offeringID)
}

// SkillSummary groups the student's skill blocks by category.
func (e *Engine) SkillSummary(ctx context.Context, studentID string) (*mastery.SkillSummary, error) {
	return e.scorer.Summary(ctx, studentID)
}

// SkillBlocks lists the student's skill blocks.
func (e *Engine) SkillBlocks(ctx context.Context, studentID string) ([]mastery.Block, error) {
	return e.scorer.Blocks(ctx, studentID)
}

// InterviewHint returns the pre-interview skill-block hint.
func (e *Engine) InterviewHint(ctx context.Context, studentID string) (*mastery.Interview, error) {
	return e.scorer.InterviewHint(ctx, studentID)
}
