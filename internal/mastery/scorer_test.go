package mastery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/store/storetest"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const (
	student  = "stu-1"
	offering = "off-1"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	st     *store.Store
	clk    *clock.Fake
	pub    *recordingPublisher
	scorer *Scorer
	nSess  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.Open(t)
	clk := clock.NewFake(t0)
	pub := &recordingPublisher{}
	scorer := NewScorer(Options{
		Courses:   st.CourseRepo(),
		Skills:    st.SkillRepo(),
		Mastery:   st.MasteryRepo(),
		Events:    st.EventRepo(),
		Formative: st.FormativeRepo(),
		Publisher: pub,
		Clock:     clk,
		Policy:    policy.Default(),
	})
	f := &fixture{st: st, clk: clk, pub: pub, scorer: scorer}
	ctx := context.Background()
	require.NoError(t, st.CourseRepo().CreateOffering(ctx, &store.OfferingRecord{ID: offering, Title: "Go 입문", InstructorID: "inst-1"}))
	return f
}

func (f *fixture) skills(t *testing.T, goal bool, skills ...store.SkillRecord) {
	t.Helper()
	ctx := context.Background()
	for _, sk := range skills {
		require.NoError(t, f.st.SkillRepo().UpsertSkill(ctx, sk))
		if goal {
			require.NoError(t, f.st.SkillRepo().AddGoalSkill(ctx, "goal-backend", sk.ID))
		}
	}
	if goal {
		require.NoError(t, f.st.SkillRepo().SetStudentGoal(ctx, student, "goal-backend"))
	}
}

// endedSession records an ended session with the given quiz outcomes,
// formative percentage (negative for none) and pulse counts.
func (f *fixture) endedSession(t *testing.T, correct, wrong int, formative float64, understand, confused int) string {
	t.Helper()
	ctx := context.Background()
	f.nSess++
	id := fmt.Sprintf("sess-%d", f.nSess)
	courses := f.st.CourseRepo()
	require.NoError(t, courses.CreateSession(ctx, &store.SessionRecord{ID: id, CourseOfferingID: offering, Title: id}))

	events := f.st.EventRepo()
	for i := 0; i < correct+wrong; i++ {
		require.NoError(t, events.AppendQuizResponse(ctx, &store.QuizResponseRecord{
			Timestamp: f.clk.Now(),
			SessionID: id,
			StudentID: student,
			QuizID:    fmt.Sprintf("%s-q%d", id, i),
			IsCorrect: i < correct,
		}))
	}
	for i := 0; i < understand+confused; i++ {
		typ := store.PulseConfused
		if i < understand {
			typ = store.PulseUnderstand
		}
		require.NoError(t, events.AppendPulse(ctx, &store.PulseRecord{
			Timestamp: f.clk.Now(), SessionID: id, StudentID: student, PulseType: typ,
		}))
	}
	if formative >= 0 {
		_, err := f.st.FormativeRepo().Create(ctx, &store.FormativeSubmissionRecord{
			SessionID: id, StudentID: student, Score: int(formative), Total: 100, Percentage: formative,
		}, nil)
		require.NoError(t, err)
	}
	require.NoError(t, courses.SetSessionStatus(ctx, id, store.SessionEnded, f.clk.Now()))
	return id
}

func TestSync_WeightedComposite(t *testing.T) {
	f := newFixture(t)
	f.skills(t, true, store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"})
	f.endedSession(t, 4, 1, 70, 3, 2)

	results, err := f.scorer.Sync(context.Background(), student, offering)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	want := Scores{Checkpoint: 80, Formative: 70, Understand: 60, Total: 71.5, IsEarned: true}
	if got.Scores != want {
		t.Errorf("Scores = %+v, want %+v", got.Scores, want)
	}
	if got.SkillName != "Go 기초" {
		t.Errorf("SkillName = %q, want %q", got.SkillName, "Go 기초")
	}
	if got.Level != 2 {
		t.Errorf("Level = %d, want default 2", got.Level)
	}
	if got.EarnedAt == nil || !got.EarnedAt.Equal(t0) {
		t.Errorf("EarnedAt = %v, want %v", got.EarnedAt, t0)
	}
	if got.Transition == nil || got.Transition.From != StateNew || got.Transition.To != StateEarned {
		t.Errorf("Transition = %+v, want new -> earned", got.Transition)
	}

	gaps, err := f.st.MasteryRepo().GapEntries(context.Background(), student)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	if gaps[0].Status != store.GapStatusOwned || gaps[0].Progress != 71 {
		t.Errorf("gap entry = %s/%d, want OWNED/71", gaps[0].Status, gaps[0].Progress)
	}

	if len(f.pub.events) != 1 || f.pub.events[0].Type != notify.EventSkillEarned {
		t.Errorf("published %d events, want one %s", len(f.pub.events), notify.EventSkillEarned)
	}
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.skills(t, true,
		store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"},
		store.SkillRecord{ID: "sql", Name: "SQL", Category: "Data"},
	)
	f.endedSession(t, 2, 2, 40, 1, 1)
	ctx := context.Background()

	first, err := f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	before, err := f.st.MasteryRepo().SkillBlocks(ctx, student)
	require.NoError(t, err)

	f.clk.Advance(time.Hour)
	second, err := f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	after, err := f.st.MasteryRepo().SkillBlocks(ctx, student)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		b, a := before[i], after[i]
		if a.ID != b.ID || a.TotalScore != b.TotalScore || a.IsEarned != b.IsEarned {
			t.Errorf("block %s changed: %+v -> %+v", b.SkillID, b, a)
		}
	}
	for i := range second {
		if second[i].Scores != first[i].Scores {
			t.Errorf("Scores[%d] = %+v, want %+v", i, second[i].Scores, first[i].Scores)
		}
		if second[i].Transition != nil {
			t.Errorf("second sync reported transition %+v", second[i].Transition)
		}
	}
}

func TestSync_EarnedAtIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.skills(t, true, store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"})
	ctx := context.Background()

	f.endedSession(t, 5, 0, 90, 5, 0)
	res, err := f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	require.True(t, res[0].Scores.IsEarned)

	// A bad session drags the composite under the threshold.
	f.clk.Advance(24 * time.Hour)
	f.endedSession(t, 0, 30, 0, 0, 30)
	res, err = f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	if res[0].Scores.IsEarned {
		t.Fatalf("IsEarned = true after failing session, total %v", res[0].Scores.Total)
	}
	if res[0].EarnedAt == nil || !res[0].EarnedAt.Equal(t0) {
		t.Errorf("EarnedAt = %v, want kept at %v", res[0].EarnedAt, t0)
	}
	if tr := res[0].Transition; tr == nil || tr.From != StateEarned || tr.To != StateNotEarned {
		t.Errorf("Transition = %+v, want earned -> not_earned", tr)
	}

	// Earning again stamps the new transition.
	f.clk.Advance(24 * time.Hour)
	for i := 0; i < 4; i++ {
		f.endedSession(t, 20, 0, 100, 20, 0)
	}
	res, err = f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	require.True(t, res[0].Scores.IsEarned)
	if want := t0.Add(48 * time.Hour); !res[0].EarnedAt.Equal(want) {
		t.Errorf("EarnedAt = %v, want %v", res[0].EarnedAt, want)
	}

	gaps, err := f.st.MasteryRepo().GapEntries(ctx, student)
	require.NoError(t, err)
	if gaps[0].Status != store.GapStatusOwned {
		t.Errorf("gap status = %s, want OWNED", gaps[0].Status)
	}
}

func TestSync_OwnedNeverDemoted(t *testing.T) {
	f := newFixture(t)
	f.skills(t, true, store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"})
	ctx := context.Background()
	require.NoError(t, f.st.MasteryRepo().PromoteOwned(ctx, student, "go-basics", 95, t0))

	f.endedSession(t, 0, 3, 10, 0, 3)
	res, err := f.scorer.Sync(ctx, student, offering)
	require.NoError(t, err)
	require.False(t, res[0].Scores.IsEarned)

	require.NoError(t, f.st.MasteryRepo().SetGapEntry(ctx, store.GapEntryRecord{
		StudentID: student, SkillID: "go-basics", Status: store.GapStatusGap, UpdatedAt: t0,
	}))
	gaps, err := f.st.MasteryRepo().GapEntries(ctx, student)
	require.NoError(t, err)
	if gaps[0].Status != store.GapStatusOwned || gaps[0].Progress != 95 {
		t.Errorf("gap entry = %s/%d, want OWNED/95", gaps[0].Status, gaps[0].Progress)
	}
}

func TestSync_SkillSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("no goal uses gap map", func(t *testing.T) {
		f := newFixture(t)
		f.skills(t, false,
			store.SkillRecord{ID: "sql", Name: "SQL", Category: "Data"},
			store.SkillRecord{ID: "docker", Name: "Docker", Category: "DevOps"},
		)
		require.NoError(t, f.st.MasteryRepo().SetGapEntry(ctx, store.GapEntryRecord{
			StudentID: student, SkillID: "sql", Status: store.GapStatusLearning, Progress: 30, UpdatedAt: t0,
		}))
		res, err := f.scorer.Sync(ctx, student, offering)
		require.NoError(t, err)
		require.Len(t, res, 1)
		if res[0].SkillID != "sql" {
			t.Errorf("SkillID = %q, want sql", res[0].SkillID)
		}
	})

	t.Run("nothing tracked", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.scorer.Sync(ctx, student, offering)
		require.NoError(t, err)
		if len(res) != 0 {
			t.Errorf("len(results) = %d, want 0", len(res))
		}
	})

	t.Run("unknown offering", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.scorer.Sync(ctx, student, "missing")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("only ended sessions count", func(t *testing.T) {
		f := newFixture(t)
		f.skills(t, true, store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"})
		require.NoError(t, f.st.CourseRepo().CreateSession(ctx, &store.SessionRecord{ID: "live", CourseOfferingID: offering, Status: store.SessionLive}))
		require.NoError(t, f.st.EventRepo().AppendQuizResponse(ctx, &store.QuizResponseRecord{
			Timestamp: t0, SessionID: "live", StudentID: student, QuizID: "q", IsCorrect: true,
		}))
		res, err := f.scorer.Sync(ctx, student, offering)
		require.NoError(t, err)
		if res[0].Scores.Checkpoint != 0 {
			t.Errorf("Checkpoint = %v, want 0", res[0].Scores.Checkpoint)
		}
	})

	t.Run("placement sets level", func(t *testing.T) {
		f := newFixture(t)
		f.skills(t, true, store.SkillRecord{ID: "go-basics", Name: "Go 기초", Category: "Backend"})
		require.NoError(t, f.st.SkillRepo().AddPlacement(ctx, store.PlacementRecord{
			StudentID: student, CourseOfferingID: offering, Level: "ADVANCED", CreatedAt: t0,
		}))
		res, err := f.scorer.Sync(ctx, student, offering)
		require.NoError(t, err)
		if res[0].Level != LevelAdvanced {
			t.Errorf("Level = %d, want %d", res[0].Level, LevelAdvanced)
		}
	})
}
