package mastery

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rebootlabs/mastery/internal/store"
)

// Block is a skill block joined with its catalog entry.
type Block struct {
	SkillID    string     `json:"skill_id"`
	SkillName  string     `json:"skill_name"`
	Category   string     `json:"category"`
	OfferingID string     `json:"course_offering_id"`
	Level      int        `json:"level"`
	Scores     Scores     `json:"scores"`
	EarnedAt   *time.Time `json:"earned_at,omitempty"`
}

// CategoryBlocks groups the blocks of one skill category.
type CategoryBlocks struct {
	Category  string  `json:"category"`
	Earned    []Block `json:"earned"`
	Remaining []Block `json:"remaining"`
}

// GapCounts counts gap-map entries by status.
type GapCounts struct {
	Owned    int `json:"owned"`
	Learning int `json:"learning"`
	Gap      int `json:"gap"`
	Total    int `json:"total"`
}

// SkillSummary is the student's skill-block overview.
type SkillSummary struct {
	Categories []CategoryBlocks `json:"categories"`
	Total      int              `json:"total"`
	Earned     int              `json:"earned"`
	Remaining  int              `json:"remaining"`
	EarnRate   float64          `json:"earn_rate"`
	GapMap     GapCounts        `json:"gap_map"`
}

// Summary groups the student's blocks by category.
func (s *Scorer) Summary(ctx context.Context, studentID string) (*SkillSummary, error) {
	blocks, err := s.blocks(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := &SkillSummary{Categories: []CategoryBlocks{}}
	index := map[string]int{}
	for _, b := range blocks {
		i, ok := index[b.Category]
		if !ok {
			i = len(out.Categories)
			index[b.Category] = i
			out.Categories = append(out.Categories, CategoryBlocks{Category: b.Category, Earned: []Block{}, Remaining: []Block{}})
		}
		c := &out.Categories[i]
		if b.Scores.IsEarned {
			c.Earned = append(c.Earned, b)
			out.Earned++
		} else {
			c.Remaining = append(c.Remaining, b)
		}
	}
	slices.SortFunc(out.Categories, func(a, b CategoryBlocks) int { return cmp.Compare(a.Category, b.Category) })

	out.Total = len(blocks)
	out.Remaining = out.Total - out.Earned
	if out.Total > 0 {
		out.EarnRate = math.Round(float64(out.Earned)/float64(out.Total)*1000) / 10
	}

	entries, err := s.mastery.GapEntries(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		switch e.Status {
		case store.GapStatusOwned:
			out.GapMap.Owned++
		case store.GapStatusLearning:
			out.GapMap.Learning++
		case store.GapStatusGap:
			out.GapMap.Gap++
		}
	}
	out.GapMap.Total = len(entries)
	return out, nil
}

// Interview is the skill-block hint shown before a mock interview.
type Interview struct {
	Level        int      `json:"level"`
	Badge        Badge    `json:"badge"`
	Earned       int      `json:"earned_count"`
	Remaining    int      `json:"remaining_count"`
	EarnedSkills []string `json:"earned_skills"`
	TopRemaining []string `json:"top_remaining"`
	Hint         string   `json:"hint"`
}

const hintTop = 3

// InterviewHint summarises the student's blocks and names the remaining
// ones closest to being earned.
func (s *Scorer) InterviewHint(ctx context.Context, studentID string) (*Interview, error) {
	level, err := s.level(ctx, studentID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := &Interview{
		Level:        level,
		Badge:        BadgeFor(level),
		EarnedSkills: []string{},
		TopRemaining: []string{},
	}
	var remaining []Block
	for _, b := range blocks {
		if b.Scores.IsEarned {
			out.EarnedSkills = append(out.EarnedSkills, b.SkillName)
		} else {
			remaining = append(remaining, b)
		}
	}
	out.Earned = len(out.EarnedSkills)
	out.Remaining = len(remaining)

	if len(remaining) == 0 {
		out.Hint = fmt.Sprintf("축하합니다! 🎉 모든 스킬블록을 획득하셨어요. 총 %d개의 스킬블록으로 면접에서 자신감을 보여주세요!", out.Earned)
		return out, nil
	}

	slices.SortStableFunc(remaining, func(a, b Block) int {
		return cmp.Compare(b.Scores.Total, a.Scores.Total)
	})
	for _, b := range remaining[:min(hintTop, len(remaining))] {
		out.TopRemaining = append(out.TopRemaining, fmt.Sprintf("%s %s (%.0f점)", out.Badge.Emoji, b.SkillName, b.Scores.Total))
	}
	out.Hint = fmt.Sprintf("현재 스킬블록이 %d개 더 있으면 더 훌륭한 면접 점수를 받으실 수 있을 거에요! 특히 %s이(가) 거의 다 왔어요.",
		out.Remaining, strings.Join(out.TopRemaining, ", "))
	return out, nil
}

// Blocks returns the student's blocks ordered by skill and offering.
func (s *Scorer) Blocks(ctx context.Context, studentID string) ([]Block, error) {
	return s.blocks(ctx, studentID)
}

func (s *Scorer) blocks(ctx context.Context, studentID string) ([]Block, error) {
	recs, err := s.mastery.SkillBlocks(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.SkillID)
	}
	skills, err := s.skills.Skills(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, len(recs))
	for _, r := range recs {
		sk := skills[r.SkillID]
		b := Block{
			SkillID:    r.SkillID,
			SkillName:  sk.Name,
			Category:   sk.Category,
			OfferingID: r.CourseOfferingID,
			Level:      r.Level,
			Scores: Scores{
				Checkpoint: r.CheckpointScore,
				Formative:  r.FormativeScore,
				Understand: r.UnderstandScore,
				Total:      r.TotalScore,
				IsEarned:   r.IsEarned,
			},
		}
		if b.SkillName == "" {
			b.SkillName = r.SkillID
		}
		if r.EarnedAt != nil {
			at := r.EarnedAt.UTC()
			b.EarnedAt = &at
		}
		out = append(out, b)
	}
	return out, nil
}
