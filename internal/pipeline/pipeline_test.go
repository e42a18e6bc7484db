package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-watch/internal/alerts"
	"mint-watch/internal/dedup"
	"mint-watch/internal/discovery"
	"mint-watch/internal/domain"
	"mint-watch/internal/enrichment"
	"mint-watch/internal/feed"
	"mint-watch/internal/observability"
	"mint-watch/internal/solana"
	"mint-watch/internal/solana/stub"
	"mint-watch/internal/storage/memory"
)

const (
	mintA = "So11111111111111111111111111111111111111112"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	payer = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

// countingSender records every payload it is asked to send.
type countingSender struct {
	mu       sync.Mutex
	payloads []*alerts.Payload
}

func (s *countingSender) Send(_ context.Context, p *alerts.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	return nil
}

func (s *countingSender) sent() []*alerts.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*alerts.Payload(nil), s.payloads...)
}

type harness struct {
	rpc    *stub.RPCClient
	store  *memory.DedupStore
	sender *countingSender
	p      *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		rpc:    stub.NewRPCClient(),
		store:  memory.NewDedupStore(),
		sender: &countingSender{},
	}
	fixed := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	h.p = New(Options{
		Filter:     discovery.NewFilter(discovery.DefaultMarkers),
		Gate:       dedup.NewGate(h.store, dedup.Options{}),
		Loader:     feed.NewLoader(h.rpc),
		Extractor:  discovery.NewExtractor(solana.TokenProgramID),
		Fetcher:    enrichment.NewFetcher(h.rpc, enrichment.Options{SkipMetadata: true}),
		Dispatcher: alerts.NewDispatcher(h.sender, alerts.DispatcherOptions{Threshold: 0.5}),
		Now:        func() time.Time { return fixed },
	})
	return h
}

// mintTx registers a transaction whose only instruction initializes mint.
func (h *harness) mintTx(sig, mint string) domain.RawEvent {
	h.rpc.AddTransaction(&solana.Transaction{
		Signature: sig,
		Slot:      100,
		Meta:      &solana.TransactionMeta{},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{payer, mint, solana.TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 2, Accounts: []int{1}},
			},
		},
	})
	return domain.RawEvent{
		EventID:  sig,
		LogLines: []string{"Program " + solana.TokenProgramID + " invoke [1]", "Program log: Instruction: InitializeMint2"},
	}
}

func TestProcessEvent_FilterRejectionHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	ev := domain.RawEvent{EventID: "sig1", LogLines: []string{"Program log: Instruction: Transfer"}}

	outcome := h.p.ProcessEvent(context.Background(), ev)

	assert.Equal(t, observability.OutcomeFilteredOut, outcome)
	assert.Zero(t, h.store.Len())
	assert.Zero(t, h.rpc.Calls("getTransaction"))
	assert.Empty(t, h.sender.sent())
}

func TestProcessEvent_FailedTransactionDroppedBeforeDedup(t *testing.T) {
	h := newHarness(t)
	ev := h.mintTx("sig1", mintA)
	ev.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	assert.Equal(t, observability.OutcomeFailedTx, h.p.ProcessEvent(context.Background(), ev))
	assert.Zero(t, h.store.Len())
}

func TestProcessEvent_ConcentratedTokenAlerts(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetSupply(mintA, 1e9)
	h.rpc.SetHolders(mintA, 6e8, 1e8, 1e8, 1e8)

	outcome := h.p.ProcessEvent(context.Background(), h.mintTx("sig1", mintA))
	require.Equal(t, observability.OutcomeProcessed, outcome)

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	msg := sent[0].Message
	assert.Equal(t, mintA, msg.Candidate.Mint)
	assert.Equal(t, "sig1", msg.SourceEventID)
	assert.InDelta(t, 63.0, msg.Score, 1e-9)
	assert.NotEmpty(t, msg.AlertID)
	assert.Contains(t, sent[0].Text, "Mint: "+mintA)
	assert.Contains(t, sent[0].Text, "/tx/sig1")
}

func TestProcessEvent_ZeroSupplySuppressed(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetSupply(mintA, 0)
	h.rpc.SetHolders(mintA)

	h.p.ProcessEvent(context.Background(), h.mintTx("sig1", mintA))
	assert.Empty(t, h.sender.sent())
}

func TestProcessEvent_SupplyFailureStillFetchesHolders(t *testing.T) {
	h := newHarness(t)
	h.rpc.SupplyErr = assert.AnError
	h.rpc.SetHolders(mintA, 5e8)

	h.p.ProcessEvent(context.Background(), h.mintTx("sig1", mintA))

	assert.Equal(t, 1, h.rpc.Calls("getTokenLargestAccounts"))
	// Supply reads as 0, so only the small-supply bonus applies.
	assert.Empty(t, h.sender.sent())
}

func TestProcessEvent_EventIdempotence(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetSupply(mintA, 1e9)
	h.rpc.SetHolders(mintA, 6e8, 1e8, 1e8, 1e8)
	ev := h.mintTx("sig1", mintA)

	assert.Equal(t, observability.OutcomeProcessed, h.p.ProcessEvent(context.Background(), ev))
	assert.Equal(t, observability.OutcomeDuplicate, h.p.ProcessEvent(context.Background(), ev))

	assert.Equal(t, 1, h.rpc.Calls("getTransaction"))
	assert.Len(t, h.sender.sent(), 1)
}

func TestProcessEvent_CandidateIdempotenceAcrossEvents(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetSupply(mintA, 1e9)
	h.rpc.SetHolders(mintA, 6e8, 1e8, 1e8, 1e8)

	h.p.ProcessEvent(context.Background(), h.mintTx("sig1", mintA))
	h.p.ProcessEvent(context.Background(), h.mintTx("sig2", mintA))

	assert.Equal(t, 2, h.rpc.Calls("getTransaction"))
	assert.Equal(t, 1, h.rpc.Calls("getTokenSupply"))
	assert.Len(t, h.sender.sent(), 1)
}

func TestProcessEvent_NoCandidateForOtherProgram(t *testing.T) {
	h := newHarness(t)
	h.rpc.AddTransaction(&solana.Transaction{
		Signature: "sig1",
		Meta:      &solana.TransactionMeta{},
		Message: &solana.TransactionMessage{
			AccountKeys:  []string{payer, mintA, "11111111111111111111111111111111"},
			Instructions: []solana.CompiledInstruction{{ProgramIDIndex: 2, Accounts: []int{1}}},
		},
	})
	ev := domain.RawEvent{EventID: "sig1", LogLines: []string{"Program log: create_account"}}

	assert.Equal(t, observability.OutcomeNoCandidate, h.p.ProcessEvent(context.Background(), ev))
	assert.Zero(t, h.rpc.Calls("getTokenSupply"))
}

func TestProcessEvent_LoadFailure(t *testing.T) {
	h := newHarness(t)
	ev := domain.RawEvent{EventID: "missing", LogLines: []string{"Instruction: InitializeMint"}}

	assert.Equal(t, observability.OutcomeLoadFailed, h.p.ProcessEvent(context.Background(), ev))
}

func TestRun_DrainsUntilChannelClosed(t *testing.T) {
	h := newHarness(t)
	for _, m := range []string{mintA, mintB} {
		h.rpc.SetSupply(m, 1e9)
		h.rpc.SetHolders(m, 6e8, 1e8, 1e8, 1e8)
	}

	events := make(chan domain.RawEvent, 4)
	events <- h.mintTx("sig1", mintA)
	events <- h.mintTx("sig2", mintB)
	events <- h.mintTx("sig2", mintB)
	close(events)

	require.NoError(t, h.p.Run(context.Background(), events))
	assert.Len(t, h.sender.sent(), 2)
}

// blockingDispatcher holds every dispatch until its context is done.
type blockingDispatcher struct {
	started chan struct{}
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, _ domain.AlertMessage) alerts.Outcome {
	d.started <- struct{}{}
	<-ctx.Done()
	return alerts.OutcomeFailed
}

func TestRun_CancelWaitsForGraceThenReturns(t *testing.T) {
	h := newHarness(t)
	disp := &blockingDispatcher{started: make(chan struct{}, 1)}
	h.p.dispatcher = disp
	h.p.grace = 50 * time.Millisecond
	h.rpc.SetSupply(mintA, 1e9)
	h.rpc.SetHolders(mintA, 1)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan domain.RawEvent, 1)
	events <- h.mintTx("sig1", mintA)

	done := make(chan error, 1)
	go func() { done <- h.p.Run(ctx, events) }()

	<-disp.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after grace period")
	}
}

// slowLoader tracks how many loads run at once.
type slowLoader struct {
	delay time.Duration

	mu      sync.Mutex
	current int
	peak    int
	total   int
}

func (l *slowLoader) Load(_ context.Context, ev domain.RawEvent) (domain.RawEvent, error) {
	l.mu.Lock()
	l.current++
	l.total++
	if l.current > l.peak {
		l.peak = l.current
	}
	l.mu.Unlock()

	time.Sleep(l.delay)

	l.mu.Lock()
	l.current--
	l.mu.Unlock()
	return ev, nil
}

func TestRun_BoundsConcurrentEvents(t *testing.T) {
	h := newHarness(t)
	loader := &slowLoader{delay: 20 * time.Millisecond}
	h.p.loader = loader
	h.p.maxInFlight = 3

	const n = 50
	events := make(chan domain.RawEvent, n)
	for i := 0; i < n; i++ {
		events <- domain.RawEvent{
			EventID:  fmt.Sprintf("sig%d", i),
			LogLines: []string{"Program log: Instruction: InitializeMint2"},
		}
	}
	close(events)

	require.NoError(t, h.p.Run(context.Background(), events))

	loader.mu.Lock()
	defer loader.mu.Unlock()
	assert.Equal(t, n, loader.total)
	assert.LessOrEqual(t, loader.peak, 3)
	assert.Greater(t, loader.peak, 1, "events should run concurrently")
}
