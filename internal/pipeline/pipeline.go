// Package pipeline wires feed events through filtering, dedup, extraction,
// enrichment, scoring and alert dispatch.
//
// Flow: filter → failed-tx drop → dedup(sig) → load → extract →
// dedup(mint) → enrich → score → dispatch
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"mint-watch/internal/alerts"
	"mint-watch/internal/domain"
	"mint-watch/internal/enrichment"
	"mint-watch/internal/idhash"
	"mint-watch/internal/observability"
	"mint-watch/internal/risk"
)

// Defaults for the worker bound and shutdown.
const (
	DefaultMaxInFlight   = 64
	DefaultShutdownGrace = 10 * time.Second
)

// EventFilter decides whether an event's log text is worth processing.
type EventFilter interface {
	Match(text string) bool
}

// Deduper records and reports previously seen events and candidates.
type Deduper interface {
	SeenEvent(ctx context.Context, eventID string) bool
	SeenCandidate(ctx context.Context, mint string) bool
}

// TxLoader completes an event with its transaction message.
type TxLoader interface {
	Load(ctx context.Context, ev domain.RawEvent) (domain.RawEvent, error)
}

// CandidateExtractor pulls mint candidates out of a loaded event.
type CandidateExtractor interface {
	Extract(ev domain.RawEvent) []domain.Candidate
}

// Enricher fetches supply, holders and metadata for a mint.
type Enricher interface {
	Fetch(ctx context.Context, mint string) enrichment.Report
}

// AlertDispatcher decides on and delivers an alert.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, msg domain.AlertMessage) alerts.Outcome
}

// Options holds every dependency of a Pipeline.
type Options struct {
	Filter     EventFilter
	Gate       Deduper
	Loader     TxLoader
	Extractor  CandidateExtractor
	Fetcher    Enricher
	Dispatcher AlertDispatcher

	MaxInFlight   int
	ShutdownGrace time.Duration

	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Pipeline processes events concurrently, at most MaxInFlight at a time.
type Pipeline struct {
	filter     EventFilter
	gate       Deduper
	loader     TxLoader
	extractor  CandidateExtractor
	fetcher    Enricher
	dispatcher AlertDispatcher

	maxInFlight int64
	grace       time.Duration

	log     logrus.FieldLogger
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Pipeline{
		filter:      opts.Filter,
		gate:        opts.Gate,
		loader:      opts.Loader,
		extractor:   opts.Extractor,
		fetcher:     opts.Fetcher,
		dispatcher:  opts.Dispatcher,
		maxInFlight: int64(opts.MaxInFlight),
		grace:       opts.ShutdownGrace,
		log:         log.WithField("component", "pipeline"),
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
}

// Run consumes events until ctx is cancelled or events is closed.
//
// On cancellation intake stops and in-flight events get ShutdownGrace to
// finish before their context is cancelled too. When events is closed Run
// waits for all workers. Dedup marks are never undone.
func (p *Pipeline) Run(ctx context.Context, events <-chan domain.RawEvent) error {
	sem := semaphore.NewWeighted(p.maxInFlight)
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup

intake:
	for {
		select {
		case <-ctx.Done():
			break intake
		case ev, ok := <-events:
			if !ok {
				wg.Wait()
				return nil
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				break intake
			}

			wg.Add(1)
			p.metrics.IncInFlight(1)
			go func() {
				defer func() {
					p.metrics.IncInFlight(-1)
					sem.Release(1)
					wg.Done()
				}()
				p.ProcessEvent(workCtx, ev)
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-done:
		p.log.Info("Pipeline drained")
	case <-timer.C:
		p.log.WithField("grace", p.grace.String()).Warn("Shutdown grace elapsed, abandoning in-flight events")
		cancelWork()
		<-done
	}

	return ctx.Err()
}

// ProcessEvent runs one event through every stage and returns its outcome.
func (p *Pipeline) ProcessEvent(ctx context.Context, ev domain.RawEvent) string {
	start := p.now()
	outcome := p.processEvent(ctx, ev)
	p.metrics.RecordEvent(outcome, p.now().Sub(start))
	return outcome
}

func (p *Pipeline) processEvent(ctx context.Context, ev domain.RawEvent) string {
	if !p.filter.Match(ev.Text()) {
		return observability.OutcomeFilteredOut
	}
	if ev.Failed() {
		return observability.OutcomeFailedTx
	}
	if p.gate.SeenEvent(ctx, ev.EventID) {
		return observability.OutcomeDuplicate
	}

	loaded, err := p.loader.Load(ctx, ev)
	if err != nil {
		p.log.WithError(err).WithField("signature", ev.EventID).Warn("Transaction load failed")
		return observability.OutcomeLoadFailed
	}
	if loaded.Failed() {
		return observability.OutcomeFailedTx
	}

	candidates := p.extractor.Extract(loaded)
	if len(candidates) == 0 {
		return observability.OutcomeNoCandidate
	}

	for _, c := range candidates {
		p.processCandidate(ctx, c)
	}
	return observability.OutcomeProcessed
}

func (p *Pipeline) processCandidate(ctx context.Context, c domain.Candidate) {
	if p.gate.SeenCandidate(ctx, c.Mint) {
		p.metrics.RecordCandidate(observability.OutcomeDuplicate)
		return
	}

	report := p.fetcher.Fetch(ctx, c.Mint)
	enr := report.Enrichment()
	score := risk.Score(enr)
	p.metrics.RecordScore(score)

	msg := domain.AlertMessage{
		AlertID:       idhash.ComputeAlertID(c.Mint, c.SourceEventID),
		Candidate:     c,
		Enrichment:    enr,
		Score:         score,
		SourceEventID: c.SourceEventID,
		DetectedAt:    p.now(),
	}

	outcome := p.dispatcher.Dispatch(ctx, msg)
	p.metrics.RecordCandidate(string(outcome))
}
