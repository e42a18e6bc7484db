// Package observability provides Prometheus metrics and the liveness server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event outcomes recorded by the pipeline.
const (
	OutcomeFilteredOut = "filtered_out"
	OutcomeFailedTx    = "failed_tx"
	OutcomeDuplicate   = "duplicate"
	OutcomeLoadFailed  = "load_failed"
	OutcomeNoCandidate = "no_candidate"
	OutcomeProcessed   = "processed"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Feed metrics
	FeedConnectAttempts prometheus.Counter
	FeedConnectFailures *prometheus.CounterVec
	FeedNotifications   prometheus.Counter
	FeedEventsDropped   prometheus.Counter
	FeedMalformed       prometheus.Counter

	// Pipeline metrics
	EventsTotal     *prometheus.CounterVec
	CandidatesTotal *prometheus.CounterVec
	DedupErrors     *prometheus.CounterVec
	InFlight        prometheus.Gauge
	EventLatency    prometheus.Histogram

	// Enrichment and scoring metrics
	EnrichmentFailures *prometheus.CounterVec
	RiskScores         prometheus.Histogram

	// Alert metrics
	AlertsTotal *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mint_watch"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Feed metrics
		FeedConnectAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connect_attempts_total",
			Help:      "Total number of feed connection attempts",
		}),
		FeedConnectFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connect_failures_total",
			Help:      "Total number of feed session failures by phase",
		}, []string{"phase"}),
		FeedNotifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_total",
			Help:      "Total number of logs notifications received",
		}),
		FeedEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped because the pipeline queue was full",
		}),
		FeedMalformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "malformed_total",
			Help:      "Total number of undecodable feed messages",
		}),

		// Pipeline metrics
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_total",
			Help:      "Total number of events by terminal outcome",
		}, []string{"outcome"}),
		CandidatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidates_total",
			Help:      "Total number of extracted candidates by outcome",
		}, []string{"outcome"}),
		DedupErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "errors_total",
			Help:      "Total number of dedup store errors by namespace",
		}, []string{"namespace"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Number of events currently being processed",
		}),
		EventLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "event_latency_seconds",
			Help:      "Per-event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Enrichment and scoring metrics
		EnrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "failures_total",
			Help:      "Total number of failed enrichment fetches by field",
		}, []string{"field"}),
		RiskScores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "score",
			Help:      "Distribution of computed risk scores",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 75, 100},
		}),

		// Alert metrics
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "total",
			Help:      "Total number of alert decisions by outcome",
		}, []string{"outcome"}),

		// Latency metrics
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		// Health metrics
		LastEventTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last received feed notification",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordConnectAttempt counts a feed dial.
func (m *Metrics) RecordConnectAttempt() {
	if m == nil {
		return
	}
	m.FeedConnectAttempts.Inc()
}

// RecordConnectFailure counts a feed session failure in phase (dial, read).
func (m *Metrics) RecordConnectFailure(phase string) {
	if m == nil {
		return
	}
	m.FeedConnectFailures.WithLabelValues(phase).Inc()
}

// RecordNotification counts a received notification.
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.FeedNotifications.Inc()
	m.LastEventTimestamp.Set(float64(time.Now().Unix()))
}

// RecordDropped counts an event dropped on a full queue.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.FeedEventsDropped.Inc()
}

// RecordMalformed counts an undecodable feed message.
func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.FeedMalformed.Inc()
}

// RecordEvent records the terminal outcome of one event.
func (m *Metrics) RecordEvent(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(outcome).Inc()
	m.EventLatency.Observe(elapsed.Seconds())
}

// RecordCandidate records the outcome of one candidate.
func (m *Metrics) RecordCandidate(outcome string) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(outcome).Inc()
}

// RecordDedupError counts a dedup store failure.
func (m *Metrics) RecordDedupError(namespace string) {
	if m == nil {
		return
	}
	m.DedupErrors.WithLabelValues(namespace).Inc()
}

// IncInFlight adjusts the in-flight gauge by delta.
func (m *Metrics) IncInFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}

// RecordEnrichmentFailure counts a failed enrichment fetch.
func (m *Metrics) RecordEnrichmentFailure(field string) {
	if m == nil {
		return
	}
	m.EnrichmentFailures.WithLabelValues(field).Inc()
}

// RecordScore observes a computed risk score.
func (m *Metrics) RecordScore(score float64) {
	if m == nil {
		return
	}
	m.RiskScores.Observe(score)
}

// RecordAlert records an alert decision.
func (m *Metrics) RecordAlert(outcome string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(outcome).Inc()
}

// RecordRPC records RPC call latency and errors.
// Its signature matches solana.CallObserver.
func (m *Metrics) RecordRPC(method string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}
