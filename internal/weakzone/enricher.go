package weakzone

import (
	"context"
	"sync"

	"github.com/rebootlabs/mastery/internal/clock"
	"github.com/rebootlabs/mastery/internal/llm"
	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/rebootlabs/mastery/internal/policy"
	"github.com/rebootlabs/mastery/internal/store"
)

const queueSize = 32

// Enricher fills in the supplement text of new alerts in the background.
// Jobs run one at a time on a single worker; when the queue is full the
// fallback text is written immediately instead.
type Enricher struct {
	supplementer *Supplementer
	alerts       store.AlertRepo
	pub          notify.Publisher
	clock        clock.Clock
	policy       policy.Policy
	log          *logger.Logger

	mu      sync.Mutex
	closed  bool
	pending chan enrichJob
	done    chan struct{}
}

type enrichJob struct {
	ctx   context.Context
	alert Alert
}

// NewEnricher creates an Enricher. With a nil provider no worker is started
// and every alert gets the fallback text synchronously.
func NewEnricher(provider llm.Provider, alerts store.AlertRepo, pub notify.Publisher,
	clk clock.Clock, pol policy.Policy, log *logger.Logger) *Enricher {
	if pub == nil {
		pub = notify.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	e := &Enricher{
		alerts:  alerts,
		pub:     pub,
		clock:   clk,
		policy:  pol,
		log:     log.With("service", "weakzone.Enricher"),
		pending: make(chan enrichJob, queueSize),
		done:    make(chan struct{}),
	}
	if provider != nil {
		e.supplementer = NewSupplementer(provider, DefaultSupplementConfig())
		go e.processLoop()
	} else {
		close(e.done)
	}
	return e
}

// Enqueue schedules enrichment of a committed alert.
func (e *Enricher) Enqueue(ctx context.Context, a Alert) {
	ctx = context.WithoutCancel(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.supplementer == nil || e.closed {
		e.store(ctx, a, e.policy.Supplement(a.Detail.Topic))
		return
	}
	select {
	case e.pending <- enrichJob{ctx: ctx, alert: a}:
	default:
		e.log.Warn("enrichment queue full, storing fallback", "alert_id", a.ID)
		e.store(ctx, a, e.policy.Supplement(a.Detail.Topic))
	}
}

func (e *Enricher) processLoop() {
	defer close(e.done)
	for job := range e.pending {
		e.enrich(job.ctx, job.alert)
	}
}

func (e *Enricher) enrich(ctx context.Context, a Alert) {
	text, err := e.supplementer.Supplement(ctx, a.Detail.Topic)
	if err != nil {
		e.log.Warn("supplement generation failed, using fallback",
			"alert_id", a.ID, "topic", a.Detail.Topic, "error", err)
		text = e.policy.Supplement(a.Detail.Topic)
	}
	e.store(ctx, a, text)
}

func (e *Enricher) store(ctx context.Context, a Alert, text string) {
	if err := e.alerts.SetContent(ctx, a.ID, text, e.clock.Now()); err != nil {
		e.log.Error("failed to store supplement", "alert_id", a.ID, "error", err)
		return
	}
	a.Supplement = text
	ev, err := notify.NewEvent(notify.EventWeakZoneEnriched, e.clock.Now(), a)
	if err == nil {
		err = e.pub.Publish(ctx, ev)
	}
	if err != nil {
		e.log.Warn("failed to publish enriched alert", "alert_id", a.ID, "error", err)
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (e *Enricher) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		if e.supplementer != nil {
			close(e.pending)
		}
	}
	e.mu.Unlock()
	<-e.done
}
