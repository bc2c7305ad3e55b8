package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/formative"
	"github.com/rebootlabs/mastery/internal/route"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/store/storetest"
	"github.com/rebootlabs/mastery/internal/weakzone"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	st  *store.Store
	clk *clock.Fake
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.Open(t)
	clk := clock.NewFake(t0)
	eng, err := New(Options{Store: st, Clock: clk})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return &fixture{st: st, clk: clk, eng: eng}
}

// liveSession seeds an offering and a LIVE session.
func (f *fixture) liveSession(t *testing.T, requireReview bool) (offeringID, sessionID string) {
	t.Helper()
	ctx := context.Background()
	off, err := f.eng.CreateOffering(ctx, Offering{Title: "Go 백엔드", InstructorID: "inst-1", RequireRouteReview: requireReview})
	require.NoError(t, err)
	sess, err := f.eng.CreateSession(ctx, Session{OfferingID: off, Title: "3주차 동시성"})
	require.NoError(t, err)
	require.NoError(t, f.eng.StartSession(ctx, sess))
	return off, sess
}

func TestNew(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New without store succeeded")
	}
}

func TestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"quiz without session", func() error {
			_, err := f.eng.RecordQuizAnswer(ctx, QuizAnswer{StudentID: "s", QuizID: "q", CorrectAnswer: "a"})
			return err
		}, "session_id"},
		{"blank student", func() error {
			_, err := f.eng.RecordQuizAnswer(ctx, QuizAnswer{SessionID: "x", StudentID: "  ", QuizID: "q", CorrectAnswer: "a"})
			return err
		}, "student_id"},
		{"bad pulse type", func() error {
			_, err := f.eng.RecordPulse(ctx, Pulse{SessionID: "x", StudentID: "s", Type: "BORED"})
			return err
		}, "pulse_type"},
		{"empty formative", func() error {
			_, err := f.eng.SubmitFormative(ctx, formative.Submission{SessionID: "x", StudentID: "s"})
			return err
		}, "questions"},
		{"formative question without answer key", func() error {
			_, err := f.eng.SubmitFormative(ctx, formative.Submission{SessionID: "x", StudentID: "s",
				Questions: []formative.Question{{Question: "q"}}})
			return err
		}, "questions[0].correct_answer"},
		{"unknown suggestion type", func() error {
			return f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: "ADAPTIVE_CONTENT", ID: "x", Action: "APPROVE"})
		}, "type"},
		{"route item without title", func() error {
			return f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: SuggestionReviewRoute, ID: "x", Action: "MODIFY",
				Items: []route.Item{{Type: route.ItemFormative}}})
		}, "items[0].title"},
		{"gap progress out of range", func() error {
			return f.eng.SetGapEntry(ctx, GapEntry{StudentID: "s", SkillID: "k", Status: "GAP", Progress: 120})
		}, "progress"},
		{"empty transcript", func() error {
			return f.eng.RecordTranscript(ctx, "x", "  ")
		}, "transcript"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("err = %q, want mention of %q", err, tt.field)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, false)

	if err := f.eng.StartSession(ctx, sess); !errors.Is(err, ErrValidation) {
		t.Errorf("StartSession twice: err = %v, want ErrValidation", err)
	}
	require.NoError(t, f.eng.EndSession(ctx, sess))
	if err := f.eng.EndSession(ctx, sess); !errors.Is(err, ErrValidation) {
		t.Errorf("EndSession twice: err = %v, want ErrValidation", err)
	}
	if err := f.eng.StartSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("StartSession(missing): err = %v, want ErrNotFound", err)
	}

	got, err := f.eng.Session(ctx, sess)
	require.NoError(t, err)
	if got.Status != store.SessionEnded || got.StartedAt == nil || got.EndedAt == nil {
		t.Errorf("session = %+v, want ENDED with both stamps", got)
	}
}

func TestRecordQuizAnswer_Streak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, false)

	answer := func(quiz, submitted string) *weakzone.Alert {
		t.Helper()
		a, err := f.eng.RecordQuizAnswer(ctx, QuizAnswer{
			SessionID: sess, StudentID: "stu-1", QuizID: quiz,
			QuestionText: "채널을 닫은 뒤 보내면 어떻게 되나요?", CorrectAnswer: "panic", SubmittedAnswer: submitted,
		})
		require.NoError(t, err)
		return a
	}

	if a := answer("q1", "panic "); a != nil {
		t.Fatalf("correct answer raised %+v", a)
	}
	if a := answer("q2", "block"); a != nil {
		t.Fatalf("single miss raised %+v", a)
	}
	f.clk.Advance(30 * time.Second)
	a := answer("q3", "nil")
	require.NotNil(t, a)
	if a.TriggerType != store.TriggerQuizWrong {
		t.Errorf("TriggerType = %s, want QUIZ_WRONG", a.TriggerType)
	}
	require.Equal(t, []string{"q3", "q2"}, a.Detail.QuizIDs)

	f.clk.Advance(2 * time.Minute)
	if a := answer("q4", "nil"); a != nil {
		t.Errorf("miss inside cooldown raised %+v", a)
	}

	// With no provider the fallback supplement is stored right away.
	alerts, err := f.eng.Alerts(ctx, sess, "stu-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	want := "📌 '채널을 닫은 뒤 보내면 어떻게 되나요?' 부분을 다시 한번 살펴보세요."
	if alerts[0].Supplement != want {
		t.Errorf("Supplement = %q, want %q", alerts[0].Supplement, want)
	}

	_, err = f.eng.RecordQuizAnswer(ctx, QuizAnswer{SessionID: "missing", StudentID: "s", QuizID: "q", CorrectAnswer: "a"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestRecordPulse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, false)
	require.NoError(t, f.eng.RecordTranscript(ctx, sess, "select 문으로 여러 채널을 기다립니다"))

	pulse := func(typ string) *weakzone.Alert {
		t.Helper()
		a, err := f.eng.RecordPulse(ctx, Pulse{SessionID: sess, StudentID: "stu-1", Type: typ})
		require.NoError(t, err)
		return a
	}
	if a := pulse(store.PulseUnderstand); a != nil {
		t.Fatalf("UNDERSTAND raised %+v", a)
	}
	if a := pulse(store.PulseConfused); a != nil {
		t.Fatalf("one CONFUSED raised %+v", a)
	}
	f.clk.Advance(time.Minute)
	a := pulse(store.PulseConfused)
	require.NotNil(t, a)
	if a.TriggerType != store.TriggerPulseConfused || a.Detail.Topic != "select 문으로 여러 채널을 기다립니다" {
		t.Errorf("alert = %s %q, want PULSE_CONFUSED with transcript topic", a.TriggerType, a.Detail.Topic)
	}

	require.NoError(t, f.eng.EndSession(ctx, sess))
	_, err := f.eng.RecordPulse(ctx, Pulse{SessionID: sess, StudentID: "stu-1", Type: store.PulseConfused})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("pulse after end: err = %v, want ErrValidation", err)
	}
}

func TestFormativeAndReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, false)
	require.NoError(t, f.eng.EndSession(ctx, sess))

	sub := formative.Submission{
		SessionID: sess, StudentID: "stu-1",
		Questions: []formative.Question{
			{ConceptTag: "select", Question: "select에서 default의 역할은?", CorrectAnswer: "논블로킹", Options: []string{"논블로킹", "타임아웃"}, Answer: "타임아웃"},
			{ConceptTag: "context", Question: "취소를 전파하는 타입은?", CorrectAnswer: "context.Context", Answer: "context.Context"},
		},
	}
	res, err := f.eng.SubmitFormative(ctx, sub)
	require.NoError(t, err)
	if res.Score != 1 || res.ReviewItemsCreated != 1 {
		t.Errorf("result = %d correct, %d items; want 1, 1", res.Score, res.ReviewItemsCreated)
	}
	if _, err := f.eng.SubmitFormative(ctx, sub); !errors.Is(err, ErrValidation) || !errors.Is(err, formative.ErrAlreadySubmitted) {
		t.Errorf("resubmit: err = %v, want ErrValidation wrapping ErrAlreadySubmitted", err)
	}

	due, err := f.eng.ListDueReviews(ctx, "stu-1")
	require.NoError(t, err)
	if len(due) != 0 {
		t.Fatalf("due before 10m = %d, want 0", len(due))
	}

	f.clk.Advance(15 * time.Minute)
	due, err = f.eng.ListDueReviews(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, due, 1)
	if due[0].ConceptName != "select" || due[0].ReviewNum != 1 {
		t.Errorf("due card = %+v, want select #1", due[0])
	}

	wrong, err := f.eng.SubmitReviewAnswer(ctx, ReviewAnswer{ItemID: due[0].ItemID, StudentID: "stu-1", Answer: "타임아웃"})
	require.NoError(t, err)
	if wrong.Correct || wrong.CurrentReview != 0 {
		t.Errorf("wrong answer result = %+v", wrong)
	}
	right, err := f.eng.SubmitReviewAnswer(ctx, ReviewAnswer{ItemID: due[0].ItemID, StudentID: "stu-1", Answer: " 논블로킹 "})
	require.NoError(t, err)
	if !right.Correct || right.CurrentReview != 1 {
		t.Errorf("right answer result = %+v", right)
	}
	if right.Next == nil || !right.Next.DueAt.Equal(t0.Add(24*time.Hour)) {
		t.Errorf("Next = %+v, want due at T+1d", right.Next)
	}
}

func TestSyncMastery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off, sess := f.liveSession(t, false)
	require.NoError(t, f.eng.UpsertSkill(ctx, Skill{ID: "go-concurrency", Name: "Go 동시성", Category: "Backend"}))
	require.NoError(t, f.eng.SetGoal(ctx, "backend", "stu-1", "go-concurrency"))
	require.NoError(t, f.eng.AddPlacement(ctx, Placement{StudentID: "stu-1", OfferingID: off, Level: "ADVANCED"}))

	for i, ok := range []bool{true, true, true, true, false} {
		submitted := "x"
		if ok {
			submitted = "a"
		}
		_, err := f.eng.RecordQuizAnswer(ctx, QuizAnswer{SessionID: sess, StudentID: "stu-1", QuizID: string(rune('a' + i)), CorrectAnswer: "a", SubmittedAnswer: submitted})
		require.NoError(t, err)
	}
	for _, typ := range []string{"UNDERSTAND", "UNDERSTAND", "UNDERSTAND", "CONFUSED"} {
		_, err := f.eng.RecordPulse(ctx, Pulse{SessionID: sess, StudentID: "stu-1", Type: typ})
		require.NoError(t, err)
		f.clk.Advance(4 * time.Minute)
	}
	require.NoError(t, f.eng.EndSession(ctx, sess))

	res, err := f.eng.SyncMastery(ctx, "stu-1", off)
	require.NoError(t, err)
	require.Len(t, res, 1)
	// 0.4*80 + 0.35*0 + 0.25*75
	if res[0].Scores.Total != 50.8 || res[0].Scores.IsEarned {
		t.Errorf("Scores = %+v, want total 50.8 not earned", res[0].Scores)
	}
	if res[0].Level != 3 {
		t.Errorf("Level = %d, want 3", res[0].Level)
	}

	hint, err := f.eng.InterviewHint(ctx, "stu-1")
	require.NoError(t, err)
	if hint.Badge.Name != "꽃" || hint.Remaining != 1 {
		t.Errorf("hint = %+v, want 꽃 badge with one remaining", hint)
	}

	if _, err := f.eng.SyncMastery(ctx, "stu-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown offering: err = %v, want ErrNotFound", err)
	}
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, true)

	for _, q := range []string{"q1", "q2"} {
		_, err := f.eng.RecordQuizAnswer(ctx, QuizAnswer{SessionID: sess, StudentID: "stu-1", QuizID: q, QuestionText: "뮤텍스", CorrectAnswer: "a", SubmittedAnswer: "b"})
		require.NoError(t, err)
	}

	// Live sessions are not reviewed yet.
	pending, err := f.eng.PendingSuggestions(ctx, "inst-1")
	require.NoError(t, err)
	if len(pending) != 0 {
		t.Fatalf("pending during live session = %d, want 0", len(pending))
	}

	require.NoError(t, f.eng.EndSession(ctx, sess))
	f.clk.Advance(time.Minute)
	rt, err := f.eng.BuildRoute(ctx, "stu-1", sess)
	require.NoError(t, err)
	require.Equal(t, store.RouteSuggested, rt.Status)

	pending, err = f.eng.PendingSuggestions(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	if pending[0].Type != SuggestionReviewRoute || pending[1].Type != SuggestionWeakZone {
		t.Errorf("pending types = %s, %s; want route then alert", pending[0].Type, pending[1].Type)
	}
	if pending[0].Detail != "3주차 동시성 복습 루트 (5분)" {
		t.Errorf("route detail = %q", pending[0].Detail)
	}

	alertsOnly, err := f.eng.PendingWeakZoneAlerts(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, alertsOnly, 1)

	other, err := f.eng.PendingSuggestions(ctx, "inst-2")
	require.NoError(t, err)
	if len(other) != 0 {
		t.Errorf("other instructor sees %d suggestions", len(other))
	}

	require.NoError(t, f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: SuggestionWeakZone, ID: pending[1].ID, Action: "APPROVE"}))
	err = f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: SuggestionWeakZone, ID: pending[1].ID, Action: "MODIFY"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("MODIFY on alert: err = %v, want ErrValidation", err)
	}
	require.NoError(t, f.eng.ApplySuggestionAction(ctx, SuggestionAction{
		Type: SuggestionReviewRoute, ID: rt.ID, Action: "MODIFY",
		Items: []route.Item{{Type: route.ItemWeakZone, Title: "뮤텍스", EstMinutes: 8}, {Type: route.ItemFormative, Title: "RWMutex", EstMinutes: 3}},
	}))
	err = f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: SuggestionReviewRoute, ID: rt.ID, Action: "APPROVE"})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, route.ErrNotSuggested) {
		t.Errorf("approve after modify: err = %v, want ErrNotSuggested validation", err)
	}
	if err := f.eng.ApplySuggestionAction(ctx, SuggestionAction{Type: SuggestionWeakZone, ID: "nope", Action: "REJECT"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown alert: err = %v, want ErrNotFound", err)
	}

	pending, err = f.eng.PendingSuggestions(ctx, "inst-1")
	require.NoError(t, err)
	if len(pending) != 0 {
		t.Errorf("pending after decisions = %d, want 0", len(pending))
	}

	routes, err := f.eng.StudentRoutes(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	if routes[0].Status != store.RouteModified || routes[0].TotalEstMinutes != 11 {
		t.Errorf("route = %s %d min, want MODIFIED 11 min", routes[0].Status, routes[0].TotalEstMinutes)
	}

	done, err := f.eng.CompleteRouteItem(ctx, rt.ID, "stu-1", 2)
	require.NoError(t, err)
	if done.Progress != 50 {
		t.Errorf("Progress = %d, want 50", done.Progress)
	}
	if _, err := f.eng.CompleteRouteItem(ctx, rt.ID, "stu-1", 9); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown order: err = %v, want ErrValidation", err)
	}
}

func TestPurgeSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, sess := f.liveSession(t, false)
	require.NoError(t, f.eng.RecordTranscript(ctx, sess, "인터페이스"))

	require.NoError(t, f.eng.PurgeSession(ctx, sess))
	if _, err := f.eng.Session(ctx, sess); !errors.Is(err, ErrNotFound) {
		t.Errorf("session after purge: err = %v, want ErrNotFound", err)
	}
	if err := f.eng.PurgeSession(ctx, sess); !errors.Is(err, ErrNotFound) {
		t.Errorf("purge twice: err = %v, want ErrNotFound", err)
	}
}
