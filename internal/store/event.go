package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter manages the global monotonic sequence number shared across
// all event tables. Per-table auto-increment IDs can't order a pulse against
// a quiz response, so every append takes a number from this single counter.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
}

// newSequenceCounter ensures the tracking table exists and is seeded.
func newSequenceCounter(ctx context.Context, drv dialect.ExecQuerier) (*sequenceCounter, error) {
	err := drv.Exec(ctx, `CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`, []any{}, nil)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	err = drv.Exec(ctx, `INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`, []any{}, nil)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, q dialect.ExecQuerier) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var rows entsql.Rows
	err := q.Query(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		[]any{}, &rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()
	seq, err := entsql.ScanInt64(rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

const (
	tableQuizResponses    = "quiz_responses"
	tablePulses           = "pulses"
	tableTranscriptChunks = "transcript_chunks"
	tableLLMRequests      = "llm_request_events"
)

var (
	quizResponseColumns = []string{
		"sequence", "timestamp", "session_id", "student_id", "quiz_id",
		"question_text", "correct_answer", "submitted_answer", "is_correct",
	}
	pulseColumns      = []string{"sequence", "timestamp", "session_id", "student_id", "pulse_type"}
	transcriptColumns = []string{"sequence", "timestamp", "session_id", "text"}
	llmRequestColumns = []string{
		"sequence", "timestamp", "provider", "model", "purpose", "input_tokens",
		"output_tokens", "latency_ms", "success", "error_message",
		"request_body", "response_body",
	}
)

type eventRepo struct {
	s *Store
}

// stamp assigns the next sequence and normalizes the timestamp to UTC.
func (r *eventRepo) stamp(ctx context.Context, seq *int64, ts *time.Time) error {
	n, err := r.s.seq.Next(ctx, r.s.drv)
	if err != nil {
		return err
	}
	*seq = n
	if ts.IsZero() {
		*ts = time.Now()
	}
	*ts = ts.UTC()
	return nil
}

func (r *eventRepo) AppendQuizResponse(ctx context.Context, rec *QuizResponseRecord) error {
	if err := r.stamp(ctx, &rec.Sequence, &rec.Timestamp); err != nil {
		return err
	}
	_, err := exec(ctx, r.s.drv, builder.Insert(tableQuizResponses).
		Columns(quizResponseColumns...).
		Values(rec.Sequence, rec.Timestamp, rec.SessionID, rec.StudentID, rec.QuizID,
			rec.QuestionText, rec.CorrectAnswer, rec.SubmittedAnswer, rec.IsCorrect))
	if err != nil {
		return fmt.Errorf("append quiz response: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendPulse(ctx context.Context, rec *PulseRecord) error {
	if err := r.stamp(ctx, &rec.Sequence, &rec.Timestamp); err != nil {
		return err
	}
	_, err := exec(ctx, r.s.drv, builder.Insert(tablePulses).
		Columns(pulseColumns...).
		Values(rec.Sequence, rec.Timestamp, rec.SessionID, rec.StudentID, rec.PulseType))
	if err != nil {
		return fmt.Errorf("append pulse: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendTranscript(ctx context.Context, rec *TranscriptRecord) error {
	if err := r.stamp(ctx, &rec.Sequence, &rec.Timestamp); err != nil {
		return err
	}
	_, err := exec(ctx, r.s.drv, builder.Insert(tableTranscriptChunks).
		Columns(transcriptColumns...).
		Values(rec.Sequence, rec.Timestamp, rec.SessionID, rec.Text))
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

func (r *eventRepo) RecentQuizResponses(ctx context.Context, sessionID, studentID string, limit int) ([]QuizResponseRecord, error) {
	sel := builder.Select(quizResponseColumns...).
		From(builder.Table(tableQuizResponses)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("student_id", studentID),
		)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}
	var out []QuizResponseRecord
	if err := scanAll(ctx, r.s.drv, sel, &out); err != nil {
		return nil, fmt.Errorf("recent quiz responses: %w", err)
	}
	return out, nil
}

func (r *eventRepo) PulsesSince(ctx context.Context, sessionID, studentID, pulseType string, since time.Time) ([]PulseRecord, error) {
	sel := builder.Select(pulseColumns...).
		From(builder.Table(tablePulses)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("student_id", studentID),
			entsql.EQ("pulse_type", pulseType),
			entsql.GTE("timestamp", since.UTC()),
		)).
		OrderBy("sequence")
	var out []PulseRecord
	if err := scanAll(ctx, r.s.drv, sel, &out); err != nil {
		return nil, fmt.Errorf("pulses since: %w", err)
	}
	return out, nil
}

func (r *eventRepo) HasIncorrectSince(ctx context.Context, sessionID, studentID string, since time.Time) (bool, error) {
	sel := builder.Select().Count().
		From(builder.Table(tableQuizResponses)).
		Where(entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("student_id", studentID),
			entsql.EQ("is_correct", false),
			entsql.GTE("timestamp", since.UTC()),
		))
	n, err := scanInt(ctx, r.s.drv, sel)
	if err != nil {
		return false, fmt.Errorf("incorrect since: %w", err)
	}
	return n > 0, nil
}

func (r *eventRepo) LatestTranscript(ctx context.Context, sessionID string) (*TranscriptRecord, error) {
	sel := builder.Select(transcriptColumns...).
		From(builder.Table(tableTranscriptChunks)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1)
	var out []TranscriptRecord
	if err := scanAll(ctx, r.s.drv, sel, &out); err != nil {
		return nil, fmt.Errorf("latest transcript: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *eventRepo) QuizTally(ctx context.Context, studentID string, sessionIDs []string) (correct, total int, err error) {
	if len(sessionIDs) == 0 {
		return 0, 0, nil
	}
	base := entsql.And(
		entsql.EQ("student_id", studentID),
		entsql.In("session_id", anys(sessionIDs)...),
	)
	total, err = scanInt(ctx, r.s.drv, builder.Select().Count().
		From(builder.Table(tableQuizResponses)).Where(base))
	if err != nil {
		return 0, 0, fmt.Errorf("count quiz responses: %w", err)
	}
	correct, err = scanInt(ctx, r.s.drv, builder.Select().Count().
		From(builder.Table(tableQuizResponses)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.In("session_id", anys(sessionIDs)...),
			entsql.EQ("is_correct", true),
		)))
	if err != nil {
		return 0, 0, fmt.Errorf("count correct responses: %w", err)
	}
	return correct, total, nil
}

func (r *eventRepo) PulseTally(ctx context.Context, studentID string, sessionIDs []string) (understand, confused int, err error) {
	if len(sessionIDs) == 0 {
		return 0, 0, nil
	}
	count := func(pulseType string) (int, error) {
		return scanInt(ctx, r.s.drv, builder.Select().Count().
			From(builder.Table(tablePulses)).
			Where(entsql.And(
				entsql.EQ("student_id", studentID),
				entsql.In("session_id", anys(sessionIDs)...),
				entsql.EQ("pulse_type", pulseType),
			)))
	}
	if understand, err = count(PulseUnderstand); err != nil {
		return 0, 0, fmt.Errorf("count understand pulses: %w", err)
	}
	if confused, err = count(PulseConfused); err != nil {
		return 0, 0, fmt.Errorf("count confused pulses: %w", err)
	}
	return understand, confused, nil
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	var (
		seq int64
		ts  time.Time
	)
	if err := r.stamp(ctx, &seq, &ts); err != nil {
		return err
	}
	_, err := exec(ctx, r.s.drv, builder.Insert(tableLLMRequests).
		Columns(llmRequestColumns...).
		Values(seq, ts, data.Provider, data.Model, data.Purpose, data.InputTokens,
			data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage,
			data.RequestBody, data.ResponseBody))
	if err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC()))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}

	sel := builder.Select(llmRequestColumns...).
		From(builder.Table(tableLLMRequests)).
		OrderBy(entsql.Desc("sequence"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	var out []LLMRequestRecord
	if err := scanAll(ctx, r.s.drv, sel, &out); err != nil {
		return nil, fmt.Errorf("query llm requests: %w", err)
	}
	return out, nil
}

func anys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
