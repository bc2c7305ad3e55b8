package route

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/formative"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/spacedrep"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/weakzone"
)

// AlertSource lists a student's weak-zone alerts in a session.
type AlertSource interface {
	Alerts(ctx context.Context, sessionID, studentID string) ([]weakzone.Alert, error)
}

// MissSource lists a student's missed formative questions in a session.
type MissSource interface {
	Misses(ctx context.Context, sessionID, studentID string) ([]formative.Miss, error)
}

// ReviewSource lists review items created from a session.
type ReviewSource interface {
	ItemsForSession(ctx context.Context, studentID, sessionID string) ([]spacedrep.Item, error)
}

// Options wires a Builder.
type Options struct {
	Routes    store.RouteRepo
	Courses   store.CourseRepo
	Alerts    AlertSource
	Misses    MissSource
	Reviews   ReviewSource
	Publisher notify.Publisher
	Clock     clock.Clock
	Policy    policy.Policy
	Logger    *logger.Logger
}

// Builder creates and manages review routes.
type Builder struct {
	routes  store.RouteRepo
	courses store.CourseRepo
	alerts  AlertSource
	misses  MissSource
	reviews ReviewSource
	pub     notify.Publisher
	clock   clock.Clock
	policy  policy.Policy
	log     *logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		routes:  opts.Routes,
		courses: opts.Courses,
		alerts:  opts.Alerts,
		misses:  opts.Misses,
		reviews: opts.Reviews,
		pub:     opts.Publisher,
		clock:   opts.Clock,
		policy:  opts.Policy,
		log:     opts.Logger,
	}
	if b.pub == nil {
		b.pub = notify.Nop{}
	}
	if b.clock == nil {
		b.clock = clock.Real{}
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	b.log = b.log.With("service", "route.Builder")
	return b
}

type inputs struct {
	alerts  []weakzone.Alert
	misses  []formative.Miss
	reviews []spacedrep.Item
}

func (b *Builder) gather(ctx context.Context, studentID, sessionID string) (inputs, error) {
	var in inputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.alerts, err = b.alerts.Alerts(gctx, sessionID, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		in.misses, err = b.misses.Misses(gctx, sessionID, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		in.reviews, err = b.reviews.ItemsForSession(gctx, studentID, sessionID)
		return err
	})
	return in, g.Wait()
}

// Build assembles the student's route for the session, or returns the
// existing one unchanged.
func (b *Builder) Build(ctx context.Context, studentID, sessionID string) (*Route, error) {
	if rec, err := b.routes.GetFor(ctx, studentID, sessionID); err == nil {
		return FromRecord(*rec)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sess, err := b.courses.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	off, err := b.courses.GetOffering(ctx, sess.CourseOfferingID)
	if err != nil {
		return nil, err
	}

	in, err := b.gather(ctx, studentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("gather route inputs: %w", err)
	}
	now := b.clock.Now()
	items := b.assemble(in, now)

	status := store.RouteAutoApproved
	if b.policy.RequireRouteReview || off.RequireRouteReview {
		status = store.RouteSuggested
	}
	raw, err := encode(items)
	if err != nil {
		return nil, fmt.Errorf("encode route items: %w", err)
	}
	rec := &store.RouteRecord{
		StudentID:       studentID,
		SessionID:       sessionID,
		Items:           raw,
		Status:          status,
		CompletedItems:  "[]",
		TotalEstMinutes: Minutes(items),
		CreatedAt:       now,
	}
	created, err := b.routes.CreateIfAbsent(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := b.routes.GetFor(ctx, studentID, sessionID)
		if err != nil {
			return nil, err
		}
		return FromRecord(*existing)
	}

	rt, err := FromRecord(*rec)
	if err != nil {
		return nil, err
	}
	b.log.Info("review route built",
		"route_id", rt.ID, "student_id", studentID, "session_id", sessionID,
		"items", len(items), "status", status, "minutes", rt.TotalEstMinutes)
	b.publish(ctx, rt)
	return rt, nil
}

// assemble orders weak zones first, then formative concepts no earlier item
// covers, then review items that are due now.
func (b *Builder) assemble(in inputs, now time.Time) []Item {
	items := []Item{}
	covered := map[string]bool{}
	add := func(it Item) {
		it.Order = len(items) + 1
		items = append(items, it)
	}

	for _, a := range in.alerts {
		if a.Status == store.AlertDismissed {
			continue
		}
		covered[a.Detail.Topic] = true
		add(Item{
			Type:       ItemWeakZone,
			Title:      a.Detail.Topic,
			RefID:      a.ID,
			Content:    a.Supplement,
			EstMinutes: b.policy.WeakZoneMinutes,
		})
	}

	var due []spacedrep.Item
	recalled := map[string]bool{}
	for _, it := range in.reviews {
		if it.CurrentReview > 0 {
			recalled[it.ConceptName] = true
		}
		if it.Status(now) == spacedrep.StatusDue {
			due = append(due, it)
			covered[it.ConceptName] = true
		}
	}

	for _, m := range in.misses {
		concept := spacedrep.ConceptKey(m.ConceptTag, m.QuestionText,
			b.policy.ConceptFallbackRunes, b.policy.ConceptMaxRunes)
		if concept == "" || covered[concept] || recalled[concept] {
			continue
		}
		covered[concept] = true
		add(Item{
			Type:       ItemFormative,
			Title:      concept,
			RefID:      m.SubmissionID,
			Content:    m.QuestionText,
			EstMinutes: b.policy.FormativeMinutes,
		})
	}

	slices.SortStableFunc(due, func(x, y spacedrep.Item) int {
		return x.NextStage().DueAt.Compare(y.NextStage().DueAt)
	})
	for _, it := range due {
		add(Item{
			Type:       ItemSpacedRep,
			Title:      it.ConceptName,
			RefID:      it.ID,
			Content:    it.Question,
			EstMinutes: b.policy.SpacedRepMinutes,
		})
	}
	return items
}

func (b *Builder) publish(ctx context.Context, rt *Route) {
	ev, err := notify.NewEvent(notify.EventRouteBuilt, b.clock.Now(), rt)
	if err == nil {
		err = b.pub.Publish(ctx, ev)
	}
	if err != nil {
		b.log.Warn("failed to publish route", "route_id", rt.ID, "error", err)
	}
}
