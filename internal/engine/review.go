package engine

import (
	"context"

	"github.com/rebootlabs/mastery/internal/formative"
	"github.com/rebootlabs/mastery/internal/spacedrep"
)

// SubmitFormative grades a formative assessment. Missed questions become
// review items and weaken matching gap-map skills.
func (e *Engine) SubmitFormative(ctx context.Context, sub formative.Submission) (*formative.Result, error) {
	if err := e.validate.Struct(sub); err != nil {
		return nil, err
	}
	if _, err := e.courses.GetSession(ctx, sub.SessionID); err != nil {
		return nil, err
	}
	res, err := e.formative.Submit(ctx, sub)
	if err != nil {
		return nil, asValidation(err, formative.ErrAlreadySubmitted, formative.ErrNoAnswers)
	}
	return res, nil
}

// ReviewAnswer is a student's recall attempt on a review card.
type ReviewAnswer struct {
	ItemID    string `json:"item_id" validate:"notblank"`
	StudentID string `json:"student_id" validate:"notblank"`
	Answer    string `json:"answer"`
}

// ListDueReviews returns the student's due review cards, most overdue
// first.
func (e *Engine) ListDueReviews(ctx context.Context, studentID string) ([]spacedrep.DueCard, error) {
	if studentID == "" {
		return nil, invalid("student_id is required")
	}
	return e.scheduler.Due(ctx, studentID)
}

// SubmitReviewAnswer records a recall attempt. A correct answer completes
// the item's next stage.
func (e *Engine) SubmitReviewAnswer(ctx context.Context, in ReviewAnswer) (spacedrep.AttemptResult, error) {
	if err := e.validate.Struct(in); err != nil {
		return spacedrep.AttemptResult{}, err
	}
	return e.scheduler.RecordAttempt(ctx, in.ItemID, in.StudentID, in.Answer)
}

// ReviewItems returns every review item of the student.
func (e *Engine) ReviewItems(ctx context.Context, studentID string) ([]spacedrep.Item, error) {
	return e.scheduler.Items(ctx, studentID)
}
