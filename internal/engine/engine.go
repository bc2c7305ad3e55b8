// Package engine is the entry point for every mastery and review
// operation. It validates input, wires the domain services to the store
// and runs the few cross-service flows.
package engine

import (
	"errors"
	"fmt"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/formative"
	"github.com/rebootlabs/mastery/internal/llm"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/route"
	"github.com/rebootlabs/mastery/internal/spacedrep"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/weakzone"
)

// ErrValidation marks input the engine refused before writing anything.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = store.ErrNotFound

// Options wires an Engine. Only Store is required.
type Options struct {
	Store     *store.Store
	Provider  llm.Provider
	Publisher notify.Publisher
	Matcher   spacedrep.ConceptMatcher
	Clock     clock.Clock
	Policy    *policy.Policy
	Logger    *logger.Logger
}

// Engine exposes the mastery and review operations.
type Engine struct {
	courses store.CourseRepo
	events  store.EventRepo
	alerts  store.AlertRepo
	skills  store.SkillRepo
	mastery store.MasteryRepo

	detector  *weakzone.Detector
	enricher  *weakzone.Enricher
	scorer    *mastery.Scorer
	scheduler *spacedrep.Scheduler
	formative *formative.Service
	routes    *route.Builder

	pub      notify.Publisher
	clock    clock.Clock
	policy   policy.Policy
	log      *logger.Logger
	validate *validator
}

// New builds an Engine around opts.Store.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine needs a store")
	}
	pol := policy.Default()
	if opts.Policy != nil {
		pol = *opts.Policy
	}
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	pub := opts.Publisher
	if pub == nil {
		pub = notify.Nop{}
	}

	st := opts.Store
	e := &Engine{
		courses:  st.CourseRepo(),
		events:   st.EventRepo(),
		alerts:   st.AlertRepo(),
		skills:   st.SkillRepo(),
		mastery:  st.MasteryRepo(),
		pub:      pub,
		clock:    clk,
		policy:   pol,
		log:      log,
		validate: newValidator(),
	}

	e.enricher = weakzone.NewEnricher(opts.Provider, e.alerts, pub, clk, pol, log)
	e.detector = weakzone.NewDetector(weakzone.Options{
		Events:    e.events,
		Alerts:    e.alerts,
		Enricher:  e.enricher,
		Publisher: pub,
		Clock:     clk,
		Policy:    pol,
		Logger:    log,
	})
	e.scorer = mastery.NewScorer(mastery.Options{
		Courses:   e.courses,
		Skills:    e.skills,
		Mastery:   e.mastery,
		Events:    e.events,
		Formative: st.FormativeRepo(),
		Publisher: pub,
		Clock:     clk,
		Policy:    pol,
		Logger:    log,
	})
	e.scheduler = spacedrep.NewScheduler(st.ReviewRepo(), opts.Matcher, clk, pol, log)
	e.formative = formative.NewService(formative.Options{
		Submissions: st.FormativeRepo(),
		Skills:      e.skills,
		Mastery:     e.mastery,
		Scheduler:   e.scheduler,
		Clock:       clk,
		Policy:      pol,
		Logger:      log,
	})
	e.routes = route.NewBuilder(route.Options{
		Routes:    st.RouteRepo(),
		Courses:   e.courses,
		Alerts:    e.detector,
		Misses:    e.formative,
		Reviews:   e.scheduler,
		Publisher: pub,
		Clock:     clk,
		Policy:    pol,
		Logger:    log,
	})
	return e, nil
}

// Policy returns the policy the engine runs with.
func (e *Engine) Policy() policy.Policy { return e.policy }

// Close waits for pending enrichment to finish. The store and publisher
// belong to the caller.
func (e *Engine) Close() {
	e.enricher.Close()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// asValidation tags domain input errors as validation failures.
func asValidation(err error, sentinels ...error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return err
}
