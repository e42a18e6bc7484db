package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-watch/internal/observability"
	"mint-watch/internal/storage/memory"
)

// recordingStore captures keys and TTLs passed to CheckAndMark.
type recordingStore struct {
	keys []string
	ttls []time.Duration
	err  error
}

func (s *recordingStore) CheckAndMark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	s.ttls = append(s.ttls, ttl)
	return false, s.err
}

func TestGate_Namespaces(t *testing.T) {
	store := &recordingStore{}
	gate := NewGate(store, Options{})
	ctx := context.Background()

	gate.SeenEvent(ctx, "5sig")
	gate.SeenCandidate(ctx, "Mint1")

	assert.Equal(t, []string{"sig:5sig", "mint:Mint1"}, store.keys)
	assert.Equal(t, []time.Duration{DefaultEventTTL, DefaultCandidateTTL}, store.ttls)
}

func TestGate_Idempotence(t *testing.T) {
	gate := NewGate(memory.NewDedupStore(), Options{})
	ctx := context.Background()

	assert.False(t, gate.SeenEvent(ctx, "sig1"))
	assert.True(t, gate.SeenEvent(ctx, "sig1"))

	// Same raw value in a different namespace is independent.
	assert.False(t, gate.SeenCandidate(ctx, "sig1"))
	assert.True(t, gate.SeenCandidate(ctx, "sig1"))
}

func TestGate_StoreErrorCountsAsSeen(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := &recordingStore{err: errors.New("connection refused")}
	gate := NewGate(store, Options{Logger: logger, Metrics: metrics})

	require.True(t, gate.SeenEvent(context.Background(), "sig1"))
	require.True(t, gate.SeenCandidate(context.Background(), "mint1"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DedupErrors.WithLabelValues(NamespaceEvent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DedupErrors.WithLabelValues(NamespaceCandidate)))
}

func TestGate_CustomTTL(t *testing.T) {
	store := &recordingStore{}
	gate := NewGate(store, Options{EventTTL: time.Minute, CandidateTTL: 2 * time.Minute})

	gate.SeenEvent(context.Background(), "a")
	gate.SeenCandidate(context.Background(), "b")

	assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute}, store.ttls)
}
