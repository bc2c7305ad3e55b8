package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/weakzone"
)

// QuizAnswer is one checkpoint-quiz response during a live session.
type QuizAnswer struct {
	SessionID       string `json:"session_id" validate:"notblank"`
	StudentID       string `json:"student_id" validate:"notblank"`
	QuizID          string `json:"quiz_id" validate:"notblank"`
	QuestionText    string `json:"question_text"`
	CorrectAnswer   string `json:"correct_answer" validate:"notblank"`
	SubmittedAnswer string `json:"submitted_answer"`
}

// Pulse is an understanding signal.
type Pulse struct {
	SessionID string `json:"session_id" validate:"notblank"`
	StudentID string `json:"student_id" validate:"notblank"`
	Type      string `json:"pulse_type" validate:"oneof=UNDERSTAND CONFUSED"`
}

// IsCorrect reports whether the submitted answer matches after trimming.
func (q QuizAnswer) IsCorrect() bool {
	return strings.TrimSpace(q.SubmittedAnswer) == strings.TrimSpace(q.CorrectAnswer)
}

// RecordQuizAnswer grades and logs a quiz answer, then checks for a wrong
// streak. The alert is nil when none was raised.
func (e *Engine) RecordQuizAnswer(ctx context.Context, in QuizAnswer) (*weakzone.Alert, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := e.courses.GetSession(ctx, in.SessionID); err != nil {
		return nil, err
	}

	rec := store.QuizResponseRecord{
		Timestamp:       e.clock.Now(),
		SessionID:       in.SessionID,
		StudentID:       in.StudentID,
		QuizID:          in.QuizID,
		QuestionText:    in.QuestionText,
		CorrectAnswer:   in.CorrectAnswer,
		SubmittedAnswer: in.SubmittedAnswer,
		IsCorrect:       in.IsCorrect(),
	}
	if err := e.events.AppendQuizResponse(ctx, &rec); err != nil {
		return nil, err
	}
	return e.detector.OnQuizAnswered(ctx, rec)
}

// RecordPulse logs a pulse and checks the confusion window. Pulses are
// accepted only while the session is live.
func (e *Engine) RecordPulse(ctx context.Context, in Pulse) (*weakzone.Alert, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, err
	}
	sess, err := e.courses.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != store.SessionLive {
		return nil, invalid("session %s is %s, not LIVE", sess.ID, sess.Status)
	}

	rec := store.PulseRecord{
		Timestamp: e.clock.Now(),
		SessionID: in.SessionID,
		StudentID: in.StudentID,
		PulseType: in.Type,
	}
	if err := e.events.AppendPulse(ctx, &rec); err != nil {
		return nil, err
	}
	if in.Type != store.PulseConfused {
		return nil, nil
	}
	return e.detector.OnPulseSubmitted(ctx, in.SessionID, in.StudentID)
}

// RecordTranscript appends a chunk of the live transcript.
func (e *Engine) RecordTranscript(ctx context.Context, sessionID, text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("transcript text is empty")
	}
	if _, err := e.courses.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return e.events.AppendTranscript(ctx, &store.TranscriptRecord{
		Timestamp: e.clock.Now(),
		SessionID: sessionID,
		Text:      text,
	})
}

// StartSession moves a waiting session to LIVE.
func (e *Engine) StartSession(ctx context.Context, sessionID string) error {
	return e.moveSession(ctx, sessionID, store.SessionWaiting, store.SessionLive)
}

// EndSession moves a live session to ENDED.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	return e.moveSession(ctx, sessionID, store.SessionLive, store.SessionEnded)
}

func (e *Engine) moveSession(ctx context.Context, sessionID, from, to string) error {
	sess, err := e.courses.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != from {
		return invalid("session %s is %s, want %s", sessionID, sess.Status, from)
	}
	if err := e.courses.SetSessionStatus(ctx, sessionID, to, e.clock.Now()); err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	e.log.Info("session status changed", "session_id", sessionID, "from", from, "to", to)
	return nil
}

// PurgeSession deletes a session with its events, alerts, routes and
// formative submissions. Review items outlive their source session.
func (e *Engine) PurgeSession(ctx context.Context, sessionID string) error {
	if _, err := e.courses.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return e.courses.PurgeSession(ctx, sessionID)
}

// Alerts returns the student's alerts in the session, oldest first.
func (e *Engine) Alerts(ctx context.Context, sessionID, studentID string) ([]weakzone.Alert, error) {
	return e.detector.Alerts(ctx, sessionID, studentID)
}
