package weakzone

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/store"
)

// Options wires a Detector.
type Options struct {
	Events    store.EventRepo
	Alerts    store.AlertRepo
	Enricher  *Enricher
	Publisher notify.Publisher
	Clock     clock.Clock
	Policy    policy.Policy
	Logger    *logger.Logger
}

// Detector evaluates quiz answers and pulses as they arrive and raises at
// most one alert per trigger family per (student, session) per cooldown.
type Detector struct {
	events   store.EventRepo
	alerts   store.AlertRepo
	enricher *Enricher
	pub      notify.Publisher
	clock    clock.Clock
	policy   policy.Policy
	log      *logger.Logger
}

// NewDetector creates a Detector.
func NewDetector(opts Options) *Detector {
	d := &Detector{
		events:   opts.Events,
		alerts:   opts.Alerts,
		enricher: opts.Enricher,
		pub:      opts.Publisher,
		clock:    opts.Clock,
		policy:   opts.Policy,
		log:      opts.Logger,
	}
	if d.pub == nil {
		d.pub = notify.Nop{}
	}
	if d.clock == nil {
		d.clock = clock.Real{}
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	d.log = d.log.With("service", "weakzone.Detector")
	return d
}

// OnQuizAnswered checks for a streak of wrong answers ending at resp, which
// must already be in the event log. It returns the new alert, or nil when
// none was raised.
func (d *Detector) OnQuizAnswered(ctx context.Context, resp store.QuizResponseRecord) (*Alert, error) {
	if resp.IsCorrect {
		return nil, nil
	}
	recent, err := d.events.RecentQuizResponses(ctx, resp.SessionID, resp.StudentID, d.policy.QuizStreak)
	if err != nil {
		return nil, fmt.Errorf("load recent responses: %w", err)
	}
	if len(recent) < d.policy.QuizStreak {
		return nil, nil
	}
	quizIDs := make([]string, 0, len(recent))
	for _, r := range recent {
		if r.IsCorrect {
			return nil, nil
		}
		quizIDs = append(quizIDs, r.QuizID)
	}

	detail := Detail{
		Topic:   Topic(recent[0].QuestionText, d.policy.TopicRunes, d.policy.TopicPlaceholder),
		QuizIDs: quizIDs,
	}
	return d.raise(ctx, resp.SessionID, resp.StudentID, store.TriggerQuizWrong, detail)
}

// OnPulseSubmitted checks the trailing pulse window after a CONFUSED pulse.
// The result is COMBINED when the student also answered a quiz wrong in the
// same window.
func (d *Detector) OnPulseSubmitted(ctx context.Context, sessionID, studentID string) (*Alert, error) {
	since := d.clock.Now().Add(-d.policy.PulseWindow)
	pulses, err := d.events.PulsesSince(ctx, sessionID, studentID, store.PulseConfused, since)
	if err != nil {
		return nil, fmt.Errorf("load confused pulses: %w", err)
	}
	if len(pulses) < d.policy.ConfusedThreshold {
		return nil, nil
	}

	wrong, err := d.events.HasIncorrectSince(ctx, sessionID, studentID, since)
	if err != nil {
		return nil, fmt.Errorf("check recent wrong answers: %w", err)
	}
	trigger := store.TriggerPulseConfused
	if wrong {
		trigger = store.TriggerCombined
	}

	chunk, err := d.events.LatestTranscript(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	var text string
	if chunk != nil {
		text = chunk.Text
	}

	seqs := make([]int64, len(pulses))
	for i, p := range pulses {
		seqs[i] = p.Sequence
	}
	detail := Detail{
		Topic:          Topic(text, d.policy.TopicRunes, d.policy.TopicPlaceholder),
		PulseSequences: seqs,
		ConfusedCount:  len(pulses),
	}
	return d.raise(ctx, sessionID, studentID, trigger, detail)
}

func (d *Detector) raise(ctx context.Context, sessionID, studentID, trigger string, detail Detail) (*Alert, error) {
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("encode alert detail: %w", err)
	}
	now := d.clock.Now()
	rec := &store.AlertRecord{
		SessionID:     sessionID,
		StudentID:     studentID,
		TriggerType:   trigger,
		TriggerFamily: FamilyOf(trigger),
		TriggerDetail: string(raw),
		Status:        store.AlertDetected,
		CreatedAt:     now,
	}
	created, err := d.alerts.CreateIfClear(ctx, rec, now.Add(-d.policy.AlertCooldown))
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if !created {
		return nil, nil
	}

	alert, err := FromRecord(*rec)
	if err != nil {
		return nil, err
	}
	d.log.Info("weak zone detected",
		"alert_id", alert.ID,
		"trigger", trigger,
		"topic", detail.Topic,
	)
	d.publish(ctx, *alert)
	if d.enricher != nil {
		d.enricher.Enqueue(ctx, *alert)
	}
	return alert, nil
}

func (d *Detector) publish(ctx context.Context, a Alert) {
	ev, err := notify.NewEvent(notify.EventWeakZoneDetected, d.clock.Now(), a)
	if err == nil {
		err = d.pub.Publish(ctx, ev)
	}
	if err != nil {
		d.log.Warn("failed to publish alert", "alert_id", a.ID, "error", err)
	}
}

// Alerts returns the student's alerts in the session, oldest first.
func (d *Detector) Alerts(ctx context.Context, sessionID, studentID string) ([]Alert, error) {
	recs, err := d.alerts.ForStudentSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs)
}

// Apply records an instructor decision on an alert.
func (d *Detector) Apply(ctx context.Context, alertID, action string) (*Alert, error) {
	status, ok := actionStatus[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err := d.alerts.SetStatus(ctx, alertID, status, d.clock.Now()); err != nil {
		return nil, err
	}
	rec, err := d.alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	return FromRecord(*rec)
}
