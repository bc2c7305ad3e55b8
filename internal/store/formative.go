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
	tableFormativeSubmissions = "formative_submissions"
	tableFormativeAnswers     = "formative_answers"
)

var (
	submissionColumns = []string{"id", "session_id", "student_id", "score", "total", "percentage", "submitted_at"}
	answerColumns     = []string{"submission_id", "position", "concept_tag", "question_text", "correct_answer", "options", "is_correct"}
)

type formativeRepo struct {
	s *Store
}

func (r *formativeRepo) Create(ctx context.Context, sub *FormativeSubmissionRecord, answers []FormativeAnswerRecord) (bool, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()

	created := false
	err := r.s.withTx(ctx, func(tx dialect.Tx) error {
		n, err := exec(ctx, tx, builder.Insert(tableFormativeSubmissions).
			Columns(submissionColumns...).
			Values(sub.ID, sub.SessionID, sub.StudentID, sub.Score, sub.Total, sub.Percentage, sub.SubmittedAt).
			OnConflict(
				entsql.ConflictColumns("session_id", "student_id"),
				entsql.DoNothing(),
			))
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		if n == 0 {
			return nil
		}
		if len(answers) > 0 {
			ins := builder.Insert(tableFormativeAnswers).Columns(answerColumns...)
			for i := range answers {
				a := &answers[i]
				a.SubmissionID = sub.ID
				if a.Options == "" {
					a.Options = "[]"
				}
				ins.Values(a.SubmissionID, a.Position, a.ConceptTag, a.QuestionText, a.CorrectAnswer, a.Options, a.IsCorrect)
			}
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert answers: %w", err)
			}
		}
		created = true
		return nil
	})
	return created, err
}

func (r *formativeRepo) Get(ctx context.Context, sessionID, studentID string) (*FormativeSubmissionRecord, error) {
	var out []FormativeSubmissionRecord
	err := scanAll(ctx, r.s.drv, builder.Select(submissionColumns...).
		From(builder.Table(tableFormativeSubmissions)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("student_id", studentID),
		)), &out)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("submission for session %s: %w", sessionID, ErrNotFound)
	}
	return &out[0], nil
}

func (r *formativeRepo) Answers(ctx context.Context, submissionID string) ([]FormativeAnswerRecord, error) {
	var out []FormativeAnswerRecord
	err := scanAll(ctx, r.s.drv, builder.Select(answerColumns...).
		From(builder.Table(tableFormativeAnswers)).
		Where(entsql.EQ("submission_id", submissionID)).
		OrderBy("position"), &out)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return out, nil
}

func (r *formativeRepo) Percentages(ctx context.Context, studentID string, sessionIDs []string) ([]float64, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var out []float64
	err := scanAll(ctx, r.s.drv, builder.Select("percentage").
		From(builder.Table(tableFormativeSubmissions)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.In("session_id", anys(sessionIDs)...),
		)), &out)
	if err != nil {
		return nil, fmt.Errorf("submission percentages: %w", err)
	}
	return out, nil
}
