// Package dedup suppresses repeated events and candidates.
package dedup

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"mint-watch/internal/observability"
	"mint-watch/internal/storage"
)

// Key namespaces.
const (
	NamespaceEvent     = "sig"
	NamespaceCandidate = "mint"
)

// Default retention windows.
const (
	DefaultEventTTL     = 6 * time.Hour
	DefaultCandidateTTL = 12 * time.Hour
)

// Gate applies namespaced check-and-mark against a shared store.
// Store errors are logged, counted, and reported as seen, so an outage
// can cause missed alerts but never duplicate ones.
type Gate struct {
	store        storage.DedupStore
	eventTTL     time.Duration
	candidateTTL time.Duration
	log          logrus.FieldLogger
	metrics      *observability.Metrics
}

// Options configures a Gate.
type Options struct {
	EventTTL     time.Duration
	CandidateTTL time.Duration
	Logger       logrus.FieldLogger
	Metrics      *observability.Metrics
}

// NewGate creates a Gate. Zero TTLs take the defaults.
func NewGate(store storage.DedupStore, opts Options) *Gate {
	if opts.EventTTL <= 0 {
		opts.EventTTL = DefaultEventTTL
	}
	if opts.CandidateTTL <= 0 {
		opts.CandidateTTL = DefaultCandidateTTL
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Gate{
		store:        store,
		eventTTL:     opts.EventTTL,
		candidateTTL: opts.CandidateTTL,
		log:          opts.Logger.WithField("component", "dedup"),
		metrics:      opts.Metrics,
	}
}

// SeenEvent reports whether eventID was already processed, recording it if not.
func (g *Gate) SeenEvent(ctx context.Context, eventID string) bool {
	return g.check(ctx, NamespaceEvent, eventID, g.eventTTL)
}

// SeenCandidate reports whether mint was already processed, recording it if not.
func (g *Gate) SeenCandidate(ctx context.Context, mint string) bool {
	return g.check(ctx, NamespaceCandidate, mint, g.candidateTTL)
}

func (g *Gate) check(ctx context.Context, namespace, key string, ttl time.Duration) bool {
	seen, err := g.store.CheckAndMark(ctx, Key(namespace, key), ttl)
	if err != nil {
		g.metrics.RecordDedupError(namespace)
		g.log.WithError(err).WithFields(logrus.Fields{
			"namespace": namespace,
			"key":       key,
		}).Warn("Dedup store error, skipping")
		return true
	}
	return seen
}

// Key builds the stored key "<namespace>:<key>".
func Key(namespace, key string) string {
	return namespace + ":" + key
}
