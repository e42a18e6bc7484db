// Package feed turns upstream logs subscriptions into RawEvents.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"mint-watch/internal/domain"
	"mint-watch/internal/observability"
	"mint-watch/internal/solana"
)

// DefaultReconnectDelay is the fixed wait between connection attempts.
const DefaultReconnectDelay = 5 * time.Second

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// Endpoints are tried in order; the cursor moves on failure only.
	Endpoints      []string
	Filter         solana.LogsFilter
	ReconnectDelay time.Duration
	Logger         logrus.FieldLogger
	Metrics        *observability.Metrics
}

// Adapter maintains one logs subscription at a time and reconnects forever.
type Adapter struct {
	dialer    solana.LogsDialer
	endpoints []string
	filter    solana.LogsFilter
	delay     time.Duration
	log       logrus.FieldLogger
	metrics   *observability.Metrics

	cursor int
}

// NewAdapter creates an Adapter.
func NewAdapter(dialer solana.LogsDialer, opts AdapterOptions) (*Adapter, error) {
	if len(opts.Endpoints) == 0 {
		return nil, errors.New("feed: at least one endpoint is required")
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Adapter{
		dialer:    dialer,
		endpoints: append([]string(nil), opts.Endpoints...),
		filter:    opts.Filter,
		delay:     opts.ReconnectDelay,
		log:       log.WithField("component", "feed"),
		metrics:   opts.Metrics,
	}, nil
}

// Run connects, subscribes and forwards events to out until ctx is cancelled.
// Delivery never blocks: when out is full the event is dropped and counted.
// Events in flight during a connection drop are lost.
func (a *Adapter) Run(ctx context.Context, out chan<- domain.RawEvent) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		endpoint := a.endpoints[a.cursor]
		err := a.runSession(ctx, endpoint, out)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		a.cursor = (a.cursor + 1) % len(a.endpoints)
		a.log.WithError(err).WithFields(logrus.Fields{
			"endpoint": redact(endpoint),
			"next":     redact(a.endpoints[a.cursor]),
			"delay":    a.delay.String(),
		}).Warn("Feed connection lost, reconnecting")

		timer := time.NewTimer(a.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runSession runs one connection until it fails. It always returns non-nil.
func (a *Adapter) runSession(ctx context.Context, endpoint string, out chan<- domain.RawEvent) error {
	a.metrics.RecordConnectAttempt()

	session, err := a.dialer.DialLogs(ctx, endpoint, a.filter)
	if err != nil {
		a.metrics.RecordConnectFailure("dial")
		return fmt.Errorf("dial %s: %w", redact(endpoint), err)
	}
	defer session.Close()

	a.log.WithField("endpoint", redact(endpoint)).Info("Subscribed to logs")

	for {
		notif, err := session.Next()
		if errors.Is(err, solana.ErrMalformedMessage) {
			a.metrics.RecordMalformed()
			a.log.WithError(err).Debug("Dropping malformed message")
			continue
		}
		if err != nil {
			a.metrics.RecordConnectFailure("read")
			return err
		}

		a.metrics.RecordNotification()
		ev := domain.RawEvent{
			EventID:  notif.Signature,
			Slot:     notif.Slot,
			LogLines: notif.Logs,
			Err:      notif.Err,
		}

		select {
		case out <- ev:
		default:
			a.metrics.RecordDropped()
			a.log.WithField("signature", ev.EventID).Debug("Queue full, dropping event")
		}
	}
}

// Cursor returns the index of the endpoint used for the next attempt.
func (a *Adapter) Cursor() int {
	return a.cursor
}
