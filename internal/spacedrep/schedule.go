package spacedrep

import (
	"time"

	"github.com/rebootlabs/mastery/internal/policy"
)

// Stage is one scheduled review of an item. ReviewNum is 1-based.
type Stage struct {
	ReviewNum   int        `json:"review_num"`
	Label       string     `json:"label"`
	DueAt       time.Time  `json:"due_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Schedule is the fixed list of reviews of an item. Stages complete
// strictly in order.
type Schedule []Stage

// NewSchedule lays out stages relative to created. All stages start
// incomplete.
func NewSchedule(created time.Time, stages []policy.ReviewStage) Schedule {
	s := make(Schedule, len(stages))
	for i, st := range stages {
		s[i] = Stage{
			ReviewNum: i + 1,
			Label:     st.Label,
			DueAt:     created.Add(st.Offset).UTC(),
		}
	}
	return s
}

// Next returns the index of the first incomplete stage, or -1 when every
// stage is complete.
func (s Schedule) Next() int {
	for i, st := range s {
		if !st.Completed {
			return i
		}
	}
	return -1
}

// Finished reports whether every stage is complete.
func (s Schedule) Finished() bool {
	return s.Next() < 0
}

// IsDue reports whether the next stage is at or past its due time.
func (s Schedule) IsDue(now time.Time) bool {
	i := s.Next()
	return i >= 0 && !now.Before(s[i].DueAt)
}

// Overdue returns how long the next stage has been due. Returns 0 if not
// yet due or finished.
func (s Schedule) Overdue(now time.Time) time.Duration {
	i := s.Next()
	if i < 0 || now.Before(s[i].DueAt) {
		return 0
	}
	return now.Sub(s[i].DueAt)
}

// Complete marks the next stage done at now and returns its index, or -1
// when the schedule is already finished.
func (s Schedule) Complete(now time.Time) int {
	i := s.Next()
	if i < 0 {
		return -1
	}
	at := now.UTC()
	s[i].Completed = true
	s[i].CompletedAt = &at
	return i
}

// CompletedPrefix returns the number of leading completed stages.
func (s Schedule) CompletedPrefix() int {
	n := 0
	for _, st := range s {
		if !st.Completed {
			break
		}
		n++
	}
	return n
}
