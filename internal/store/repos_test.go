package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSkillCatalogAndGoals(t *testing.T) {
	s := openTestStore(t)
	repo := s.SkillRepo()
	ctx := context.Background()

	for _, sk := range []SkillRecord{
		{ID: "go-chan", Name: "Go Channels", Category: "Go"},
		{ID: "sql-join", Name: "SQL Joins", Category: "Data"},
	} {
		if err := repo.UpsertSkill(ctx, sk); err != nil {
			t.Fatalf("upsert %s: %v", sk.ID, err)
		}
	}
	if err := repo.UpsertSkill(ctx, SkillRecord{ID: "go-chan", Name: "Go Channels", Category: "Concurrency"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := repo.Skills(ctx, "go-chan", "missing")
	if err != nil {
		t.Fatalf("skills: %v", err)
	}
	if len(got) != 1 || got["go-chan"].Category != "Concurrency" {
		t.Errorf("skills = %+v, want go-chan in Concurrency", got)
	}

	m, err := repo.MatchName(ctx, "CHANNEL")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if m == nil || m.ID != "go-chan" {
		t.Errorf("match CHANNEL = %+v, want go-chan", m)
	}
	if m, _ := repo.MatchName(ctx, "kubernetes"); m != nil {
		t.Errorf("match kubernetes = %+v, want nil", m)
	}

	if _, has, err := repo.GoalSkillIDs(ctx, "u1"); err != nil || has {
		t.Errorf("goal before select = %v/%v, want no goal", has, err)
	}
	for _, id := range []string{"sql-join", "go-chan"} {
		if err := repo.AddGoalSkill(ctx, "backend", id); err != nil {
			t.Fatalf("add goal skill: %v", err)
		}
	}
	if err := repo.SetStudentGoal(ctx, "u1", "backend"); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	ids, has, err := repo.GoalSkillIDs(ctx, "u1")
	if err != nil || !has {
		t.Fatalf("goal = %v/%v, want goal", has, err)
	}
	if len(ids) != 2 || ids[0] != "go-chan" || ids[1] != "sql-join" {
		t.Errorf("goal skills = %v, want [go-chan sql-join]", ids)
	}
}

func TestLatestPlacement(t *testing.T) {
	s := openTestStore(t)
	repo := s.SkillRepo()
	ctx := context.Background()

	if p, err := repo.LatestPlacement(ctx, "u1"); err != nil || p != nil {
		t.Errorf("placement before any = %+v/%v, want nil", p, err)
	}
	for i, lvl := range []string{"BEGINNER", "ADVANCED", "INTERMEDIATE"} {
		rec := PlacementRecord{StudentID: "u1", CourseOfferingID: "off", Level: lvl, CreatedAt: t0.Add(time.Duration(i) * time.Hour)}
		if err := repo.AddPlacement(ctx, rec); err != nil {
			t.Fatalf("add placement: %v", err)
		}
	}
	p, err := repo.LatestPlacement(ctx, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if p == nil || p.Level != "INTERMEDIATE" {
		t.Errorf("latest = %+v, want INTERMEDIATE", p)
	}
}

func TestAlertCooldownWindow(t *testing.T) {
	s := openTestStore(t)
	repo := s.AlertRepo()
	ctx := context.Background()

	first := &AlertRecord{SessionID: "s1", StudentID: "u1", TriggerType: TriggerQuizWrong, TriggerFamily: FamilyQuiz, CreatedAt: t0}
	created, err := repo.CreateIfClear(ctx, first, t0.Add(-5*time.Minute))
	if err != nil || !created {
		t.Fatalf("first alert = %v/%v, want created", created, err)
	}
	if first.Status != AlertDetected {
		t.Errorf("status = %s, want %s", first.Status, AlertDetected)
	}

	second := &AlertRecord{SessionID: "s1", StudentID: "u1", TriggerType: TriggerCombined, TriggerFamily: FamilyQuiz, CreatedAt: t0.Add(2 * time.Minute)}
	created, err = repo.CreateIfClear(ctx, second, t0.Add(-3*time.Minute))
	if err != nil || created {
		t.Errorf("second alert in window = %v/%v, want suppressed", created, err)
	}

	pulse := &AlertRecord{SessionID: "s1", StudentID: "u1", TriggerType: TriggerPulseConfused, TriggerFamily: FamilyPulse, CreatedAt: t0.Add(2 * time.Minute)}
	if created, err := repo.CreateIfClear(ctx, pulse, t0.Add(-3*time.Minute)); err != nil || !created {
		t.Errorf("other family = %v/%v, want created", created, err)
	}

	late := &AlertRecord{SessionID: "s1", StudentID: "u1", TriggerType: TriggerQuizWrong, TriggerFamily: FamilyQuiz, CreatedAt: t0.Add(6 * time.Minute)}
	if created, err := repo.CreateIfClear(ctx, late, t0.Add(time.Minute)); err != nil || !created {
		t.Errorf("after window = %v/%v, want created", created, err)
	}

	all, err := repo.ForStudentSession(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("alerts = %d, want 3", len(all))
	}
	if all[0].ID != first.ID {
		t.Errorf("oldest = %s, want %s", all[0].ID, first.ID)
	}
}

func TestAlertStatusAndContent(t *testing.T) {
	s := openTestStore(t)
	repo := s.AlertRepo()
	ctx := context.Background()

	rec := &AlertRecord{SessionID: "s1", StudentID: "u1", TriggerType: TriggerQuizWrong, TriggerFamily: FamilyQuiz, CreatedAt: t0}
	if _, err := repo.CreateIfClear(ctx, rec, t0); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetContent(ctx, rec.ID, "review slices", t0.Add(time.Second)); err != nil {
		t.Fatalf("set content: %v", err)
	}
	if err := repo.SetStatus(ctx, rec.ID, AlertMaterialPushed, t0.Add(time.Minute)); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := repo.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AISuggestedContent != "review slices" || got.Status != AlertMaterialPushed {
		t.Errorf("alert = %+v", got)
	}

	pushed, err := repo.WithStatus(ctx, AlertMaterialPushed, "s1", "s2")
	if err != nil || len(pushed) != 1 {
		t.Errorf("with status = %d/%v, want 1", len(pushed), err)
	}
	if detected, _ := repo.WithStatus(ctx, AlertDetected, "s1"); len(detected) != 0 {
		t.Errorf("detected = %d, want 0", len(detected))
	}

	if err := repo.SetStatus(ctx, "missing", AlertDismissed, t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestGapEntryNeverDemotesOwned(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	if err := repo.SetGapEntry(ctx, GapEntryRecord{StudentID: "u1", SkillID: "a", Status: GapStatusGap, Progress: 0, UpdatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetGapEntry(ctx, GapEntryRecord{StudentID: "u1", SkillID: "a", Status: GapStatusLearning, Progress: 40, UpdatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	if err := repo.PromoteOwned(ctx, "u1", "b", 100, t0); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetGapEntry(ctx, GapEntryRecord{StudentID: "u1", SkillID: "b", Status: GapStatusLearning, Progress: 40, UpdatedAt: t0}); err != nil {
		t.Fatal(err)
	}

	entries, err := repo.GapEntries(ctx, "u1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	byID := make(map[string]GapEntryRecord)
	for _, e := range entries {
		byID[e.SkillID] = e
	}
	if e := byID["a"]; e.Status != GapStatusLearning || e.Progress != 40 {
		t.Errorf("a = %+v, want LEARNING 40", e)
	}
	if e := byID["b"]; e.Status != GapStatusOwned || e.Progress != 100 {
		t.Errorf("b = %+v, want OWNED 100", e)
	}
}

func TestSkillBlockUpdate(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	b, err := repo.UpdateSkillBlock(ctx, "u1", "go-chan", "off", func(b *SkillBlockRecord, exists bool) error {
		if exists {
			t.Errorf("exists = true on first update")
		}
		b.TotalScore = 72.5
		b.UpdatedAt = t0
		return nil
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if b.ID == "" || b.StudentID != "u1" || b.SkillID != "go-chan" {
		t.Errorf("block = %+v", b)
	}

	earned := t0.Add(time.Hour)
	_, err = repo.UpdateSkillBlock(ctx, "u1", "go-chan", "off", func(b *SkillBlockRecord, exists bool) error {
		if !exists {
			t.Errorf("exists = false on second update")
		}
		if b.TotalScore != 72.5 {
			t.Errorf("loaded total = %v, want 72.5", b.TotalScore)
		}
		b.TotalScore = 85
		b.IsEarned = true
		b.EarnedAt = &earned
		return nil
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	blocks, err := repo.SkillBlocks(ctx, "u1")
	if err != nil || len(blocks) != 1 {
		t.Fatalf("blocks = %d/%v, want 1", len(blocks), err)
	}
	if !blocks[0].IsEarned || blocks[0].EarnedAt == nil || !blocks[0].EarnedAt.Equal(earned) {
		t.Errorf("block = %+v, want earned at %v", blocks[0], earned)
	}

	if err := repo.SetGapEntry(ctx, GapEntryRecord{StudentID: "u1", SkillID: "sql-join", Status: GapStatusGap, UpdatedAt: t0}); err != nil {
		t.Fatal(err)
	}
	ids, err := repo.StudentSkillIDs(ctx, "u1")
	if err != nil || len(ids) != 2 {
		t.Errorf("student skills = %v/%v, want 2", ids, err)
	}
}

func TestReviewItemPerConcept(t *testing.T) {
	s := openTestStore(t)
	repo := s.ReviewRepo()
	ctx := context.Background()

	rec := &ReviewItemRecord{StudentID: "u1", ConceptName: "closures", SourceSessionID: "s1", Schedule: "[]", CreatedAt: t0}
	created, err := repo.CreateIfAbsent(ctx, rec)
	if err != nil || !created {
		t.Fatalf("create = %v/%v, want created", created, err)
	}
	dup := &ReviewItemRecord{StudentID: "u1", ConceptName: "closures", SourceSessionID: "s2", Schedule: "[]", CreatedAt: t0}
	if created, err := repo.CreateIfAbsent(ctx, dup); err != nil || created {
		t.Errorf("duplicate = %v/%v, want not created", created, err)
	}

	got, err := repo.GetByConcept(ctx, "u1", "closures")
	if err != nil {
		t.Fatalf("by concept: %v", err)
	}
	if got.ID != rec.ID || got.SourceSessionID != "s1" {
		t.Errorf("item = %+v, want first insert", got)
	}

	updated, err := repo.Update(ctx, rec.ID, func(it *ReviewItemRecord) error {
		it.CurrentReview = 1
		return nil
	})
	if err != nil || updated.CurrentReview != 1 {
		t.Errorf("update = %+v/%v", updated, err)
	}
	if got, _ := repo.Get(ctx, rec.ID); got == nil || got.CurrentReview != 1 {
		t.Errorf("stored current_review = %+v, want 1", got)
	}

	names, err := repo.ConceptNames(ctx, "u1")
	if err != nil || len(names) != 1 || names[0] != "closures" {
		t.Errorf("names = %v/%v", names, err)
	}
	if items, _ := repo.ForSession(ctx, "u1", "s2"); len(items) != 0 {
		t.Errorf("items for s2 = %d, want 0", len(items))
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestRouteOnePerSession(t *testing.T) {
	s := openTestStore(t)
	repo := s.RouteRepo()
	ctx := context.Background()

	rec := &RouteRecord{StudentID: "u1", SessionID: "s1", Status: RouteSuggested, TotalEstMinutes: 25, CreatedAt: t0}
	if created, err := repo.CreateIfAbsent(ctx, rec); err != nil || !created {
		t.Fatalf("create = %v/%v, want created", created, err)
	}
	dup := &RouteRecord{StudentID: "u1", SessionID: "s1", Status: RouteAutoApproved, CreatedAt: t0}
	if created, err := repo.CreateIfAbsent(ctx, dup); err != nil || created {
		t.Errorf("duplicate = %v/%v, want not created", created, err)
	}

	got, err := repo.GetFor(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("get for: %v", err)
	}
	if got.ID != rec.ID || got.Items != "[]" || got.CompletedItems != "[]" {
		t.Errorf("route = %+v", got)
	}

	decided := t0.Add(time.Hour)
	if _, err := repo.Update(ctx, rec.ID, func(r *RouteRecord) error {
		r.Status = RouteApproved
		r.DecidedAt = &decided
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	visible, err := repo.ForStudent(ctx, "u1", RouteApproved, RouteAutoApproved)
	if err != nil || len(visible) != 1 {
		t.Errorf("visible = %d/%v, want 1", len(visible), err)
	}
	if pending, _ := repo.WithStatus(ctx, RouteSuggested, "s1"); len(pending) != 0 {
		t.Errorf("suggested = %d, want 0", len(pending))
	}
	if _, err := repo.GetFor(ctx, "u1", "s9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestFormativeSubmitOnce(t *testing.T) {
	s := openTestStore(t)
	repo := s.FormativeRepo()
	ctx := context.Background()

	sub := &FormativeSubmissionRecord{SessionID: "s1", StudentID: "u1", Score: 3, Total: 4, Percentage: 75, SubmittedAt: t0}
	answers := []FormativeAnswerRecord{
		{Position: 0, ConceptTag: "maps", QuestionText: "q1", CorrectAnswer: "a", IsCorrect: true},
		{Position: 1, ConceptTag: "slices", QuestionText: "q2", CorrectAnswer: "b"},
	}
	created, err := repo.Create(ctx, sub, answers)
	if err != nil || !created {
		t.Fatalf("create = %v/%v, want created", created, err)
	}
	again := &FormativeSubmissionRecord{SessionID: "s1", StudentID: "u1", Score: 4, Total: 4, Percentage: 100, SubmittedAt: t0}
	if created, err := repo.Create(ctx, again, nil); err != nil || created {
		t.Errorf("resubmit = %v/%v, want not created", created, err)
	}

	got, err := repo.Get(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Percentage != 75 {
		t.Errorf("percentage = %v, want 75", got.Percentage)
	}
	stored, err := repo.Answers(ctx, got.ID)
	if err != nil || len(stored) != 2 {
		t.Fatalf("answers = %d/%v, want 2", len(stored), err)
	}
	if stored[1].ConceptTag != "slices" || stored[1].IsCorrect {
		t.Errorf("answer[1] = %+v", stored[1])
	}

	second := &FormativeSubmissionRecord{SessionID: "s2", StudentID: "u1", Score: 1, Total: 2, Percentage: 50, SubmittedAt: t0}
	if _, err := repo.Create(ctx, second, nil); err != nil {
		t.Fatal(err)
	}
	pcts, err := repo.Percentages(ctx, "u1", []string{"s1", "s2", "s3"})
	if err != nil || len(pcts) != 2 {
		t.Errorf("percentages = %v/%v, want 2", pcts, err)
	}
	if pcts, _ := repo.Percentages(ctx, "u1", nil); pcts != nil {
		t.Errorf("no sessions = %v, want nil", pcts)
	}
}
