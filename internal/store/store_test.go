package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tables, err := Tables()
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if len(tables) != len(entities) {
		t.Fatalf("tables = %d, want %d", len(tables), len(entities))
	}
	for _, want := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", want.Name,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", want.Name, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx, s.drv)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestEventsShareSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	q := &QuizResponseRecord{SessionID: "s1", StudentID: "u1", QuizID: "q1", Timestamp: t0}
	p := &PulseRecord{SessionID: "s1", StudentID: "u1", PulseType: PulseConfused, Timestamp: t0}
	c := &TranscriptRecord{SessionID: "s1", Text: "hello", Timestamp: t0}
	if err := repo.AppendQuizResponse(ctx, q); err != nil {
		t.Fatalf("append quiz: %v", err)
	}
	if err := repo.AppendPulse(ctx, p); err != nil {
		t.Fatalf("append pulse: %v", err)
	}
	if err := repo.AppendTranscript(ctx, c); err != nil {
		t.Fatalf("append transcript: %v", err)
	}
	if !(q.Sequence < p.Sequence && p.Sequence < c.Sequence) {
		t.Errorf("sequences = %d, %d, %d, want strictly increasing", q.Sequence, p.Sequence, c.Sequence)
	}
}

func TestRecentQuizResponsesOrdering(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	// Two responses share a timestamp; the later sequence wins the tie.
	for i, ts := range []time.Time{t0, t0.Add(time.Minute), t0.Add(time.Minute)} {
		rec := &QuizResponseRecord{
			SessionID: "s1", StudentID: "u1",
			QuizID:    []string{"a", "b", "c"}[i],
			Timestamp: ts,
		}
		if err := repo.AppendQuizResponse(ctx, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	// Another student's response must not leak in.
	if err := repo.AppendQuizResponse(ctx, &QuizResponseRecord{
		SessionID: "s1", StudentID: "u2", QuizID: "x", Timestamp: t0.Add(time.Hour),
	}); err != nil {
		t.Fatalf("append other: %v", err)
	}

	got, err := repo.RecentQuizResponses(ctx, "s1", "u1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].QuizID != "c" || got[1].QuizID != "b" {
		t.Errorf("order = %s,%s, want c,b", got[0].QuizID, got[1].QuizID)
	}
	if !got[0].Timestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, t0.Add(time.Minute))
	}
}

func TestPulseWindowAndTallies(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	pulses := []struct {
		typ string
		at  time.Time
	}{
		{PulseConfused, t0},
		{PulseConfused, t0.Add(4 * time.Minute)},
		{PulseUnderstand, t0.Add(5 * time.Minute)},
		{PulseConfused, t0.Add(6 * time.Minute)},
	}
	for _, p := range pulses {
		if err := repo.AppendPulse(ctx, &PulseRecord{
			SessionID: "s1", StudentID: "u1", PulseType: p.typ, Timestamp: p.at,
		}); err != nil {
			t.Fatalf("append pulse: %v", err)
		}
	}

	got, err := repo.PulsesSince(ctx, "s1", "u1", PulseConfused, t0.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("pulses since: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("confused since = %d, want 2", len(got))
	}

	und, conf, err := repo.PulseTally(ctx, "u1", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("pulse tally: %v", err)
	}
	if und != 1 || conf != 3 {
		t.Errorf("tally = %d/%d, want 1/3", und, conf)
	}

	und, conf, err = repo.PulseTally(ctx, "u1", nil)
	if err != nil || und != 0 || conf != 0 {
		t.Errorf("empty tally = %d/%d/%v, want 0/0/nil", und, conf, err)
	}
}

func TestQuizTallyAndIncorrectSince(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for i, correct := range []bool{true, false, true, true} {
		if err := repo.AppendQuizResponse(ctx, &QuizResponseRecord{
			SessionID: "s1", StudentID: "u1", QuizID: "q",
			IsCorrect: correct, Timestamp: t0.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	correct, total, err := repo.QuizTally(ctx, "u1", []string{"s1"})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if correct != 3 || total != 4 {
		t.Errorf("tally = %d/%d, want 3/4", correct, total)
	}

	tests := []struct {
		since time.Time
		want  bool
	}{
		{t0, true},
		{t0.Add(time.Minute), true},
		{t0.Add(90 * time.Second), false},
	}
	for _, tt := range tests {
		got, err := repo.HasIncorrectSince(ctx, "s1", "u1", tt.since)
		if err != nil {
			t.Fatalf("incorrect since: %v", err)
		}
		if got != tt.want {
			t.Errorf("HasIncorrectSince(%v) = %v, want %v", tt.since, got, tt.want)
		}
	}
}

func TestLatestTranscript(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	got, err := repo.LatestTranscript(ctx, "s1")
	if err != nil || got != nil {
		t.Fatalf("empty latest = %v/%v, want nil/nil", got, err)
	}
	for _, text := range []string{"first", "second"} {
		if err := repo.AppendTranscript(ctx, &TranscriptRecord{SessionID: "s1", Text: text, Timestamp: t0}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err = repo.LatestTranscript(ctx, "s1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.Text != "second" {
		t.Errorf("latest = %+v, want second", got)
	}
}

func TestLLMRequestEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, purpose := range []string{"weakzone-supplement", "other", "weakzone-supplement"} {
		err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			Provider: "mock", Model: "mock-model", Purpose: purpose,
			InputTokens: 10, OutputTokens: 5, Success: true,
		})
		if err != nil {
			t.Fatalf("append llm: %v", err)
		}
	}

	all, err := repo.QueryLLMRequests(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Sequence < all[1].Sequence {
		t.Errorf("not newest first: %d before %d", all[0].Sequence, all[1].Sequence)
	}

	filtered, err := repo.QueryLLMRequests(ctx, QueryOpts{Purpose: "weakzone-supplement", Limit: 1})
	if err != nil {
		t.Fatalf("query filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Purpose != "weakzone-supplement" {
		t.Errorf("filtered = %+v", filtered)
	}
	if filtered[0].Provider != "mock" || filtered[0].InputTokens != 10 {
		t.Errorf("embedded fields not scanned: %+v", filtered[0].LLMRequestEventData)
	}
}

func TestSessionLifecycleAndNotFound(t *testing.T) {
	s := openTestStore(t)
	repo := s.CourseRepo()
	ctx := context.Background()

	off := &OfferingRecord{Title: "Go 101", InstructorID: "inst", CreatedAt: t0}
	if err := repo.CreateOffering(ctx, off); err != nil {
		t.Fatalf("create offering: %v", err)
	}
	sess := &SessionRecord{CourseOfferingID: off.ID, Title: "week 1", CreatedAt: t0}
	if err := repo.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Status != SessionWaiting {
		t.Errorf("status = %s, want %s", sess.Status, SessionWaiting)
	}

	if err := repo.SetSessionStatus(ctx, sess.ID, SessionLive, t0.Add(time.Minute)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := repo.SetSessionStatus(ctx, sess.ID, SessionEnded, t0.Add(time.Hour)); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, err := repo.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != SessionEnded || got.StartedAt == nil || got.EndedAt == nil {
		t.Errorf("session = %+v", got)
	}
	if !got.EndedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("ended_at = %v, want %v", got.EndedAt, t0.Add(time.Hour))
	}

	ended, err := repo.EndedSessions(ctx, off.ID)
	if err != nil || len(ended) != 1 {
		t.Errorf("ended sessions = %d/%v, want 1", len(ended), err)
	}

	if _, err := repo.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session err = %v, want ErrNotFound", err)
	}
	if err := repo.SetSessionStatus(ctx, "missing", SessionLive, t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing status err = %v, want ErrNotFound", err)
	}
}

func TestPurgeSessionCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := &SessionRecord{CourseOfferingID: "off", CreatedAt: t0}
	if err := s.CourseRepo().CreateSession(ctx, sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	ev := s.EventRepo()
	if err := ev.AppendQuizResponse(ctx, &QuizResponseRecord{SessionID: sess.ID, StudentID: "u1", QuizID: "q", Timestamp: t0}); err != nil {
		t.Fatal(err)
	}
	if err := ev.AppendPulse(ctx, &PulseRecord{SessionID: sess.ID, StudentID: "u1", PulseType: PulseConfused, Timestamp: t0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AlertRepo().CreateIfClear(ctx, &AlertRecord{
		SessionID: sess.ID, StudentID: "u1", TriggerType: TriggerQuizWrong, TriggerFamily: FamilyQuiz, CreatedAt: t0,
	}, t0.Add(-5*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RouteRepo().CreateIfAbsent(ctx, &RouteRecord{
		StudentID: "u1", SessionID: sess.ID, Status: RouteAutoApproved, CreatedAt: t0,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.FormativeRepo().Create(ctx, &FormativeSubmissionRecord{
		SessionID: sess.ID, StudentID: "u1", Score: 1, Total: 2, Percentage: 50,
	}, []FormativeAnswerRecord{{Position: 1, QuestionText: "q"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.CourseRepo().PurgeSession(ctx, sess.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	for _, table := range []string{
		tableQuizResponses, tablePulses, tableAlerts, tableRoutes,
		tableFormativeSubmissions, tableFormativeAnswers, tableSessions,
	} {
		var n int
		if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows = %d, want 0", table, n)
		}
	}

	if err := s.CourseRepo().PurgeSession(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second purge err = %v, want ErrNotFound", err)
	}
}
