package enrichment

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-watch/internal/domain"
	"mint-watch/internal/observability"
	"mint-watch/internal/solana"
	"mint-watch/internal/solana/stub"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func mintAccountData(decimals byte) string {
	data := make([]byte, mintAccountLen)
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000)
	data[44] = decimals
	data[45] = 1
	return base64.StdEncoding.EncodeToString(data)
}

func borsh(s string, padTo int) []byte {
	out := make([]byte, 4+padTo)
	binary.LittleEndian.PutUint32(out, uint32(padTo))
	copy(out[4:], s)
	return out
}

func metaplexData(name, symbol string) string {
	data := make([]byte, 65)
	data[0] = 4
	data = append(data, borsh(name, 32)...)
	data = append(data, borsh(symbol, 10)...)
	data = append(data, borsh("https://example.com/meta.json", 200)...)
	return base64.StdEncoding.EncodeToString(data)
}

func TestFetcher_Fetch(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetSupply(testMint, 1000)
	rpc.SetHolders(testMint, 600, 100, 50)

	pda, err := MetadataAddress(testMint)
	require.NoError(t, err)
	rpc.Accounts[testMint] = &solana.AccountInfo{Data: mintAccountData(6)}
	rpc.Accounts[pda] = &solana.AccountInfo{Data: metaplexData("Test Token", "TT")}

	report := NewFetcher(rpc, Options{Logger: quietLogger()}).Fetch(context.Background(), testMint)

	require.True(t, report.Supply.OK())
	require.True(t, report.Holders.OK())
	require.True(t, report.Metadata.OK())

	e := report.Enrichment()
	assert.Equal(t, 1000.0, e.Supply)
	assert.InDelta(t, 60.0, e.TopHolderShare, 1e-9)
	assert.InDelta(t, 75.0, e.Top10HolderShare, 1e-9)
	assert.Equal(t, 6, e.Decimals)
	assert.Equal(t, "Test Token", e.Name)
	assert.Equal(t, "TT", e.Symbol)
}

func TestFetcher_SupplyFailureStillFetchesHolders(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	rpc := stub.NewRPCClient()
	rpc.SupplyErr = errors.New("rpc down")
	rpc.SetHolders(testMint, 10)

	report := NewFetcher(rpc, Options{
		Logger:       quietLogger(),
		Metrics:      metrics,
		SkipMetadata: true,
	}).Fetch(context.Background(), testMint)

	assert.False(t, report.Supply.OK())
	assert.True(t, report.Holders.OK())
	assert.Equal(t, 1, rpc.Calls("getTokenLargestAccounts"))
	assert.Equal(t, 0, rpc.Calls("getAccountInfo"))

	e := report.Enrichment()
	assert.Zero(t, e.Supply)
	assert.Zero(t, e.TopHolderShare)
	assert.Zero(t, e.Top10HolderShare)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EnrichmentFailures.WithLabelValues(FieldSupply)))
}

func TestFetcher_AllFailuresYieldZeroEnrichment(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SupplyErr = errors.New("boom")
	rpc.HoldersErr = errors.New("boom")
	rpc.AccountErr = errors.New("boom")

	report := NewFetcher(rpc, Options{Logger: quietLogger()}).Fetch(context.Background(), testMint)

	assert.Equal(t, domain.Enrichment{}, report.Enrichment())
}

func TestFetcher_MetadataWithoutMetaplexAccount(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetSupply(testMint, 1)
	rpc.SetHolders(testMint)
	rpc.Accounts[testMint] = &solana.AccountInfo{Data: mintAccountData(9)}

	report := NewFetcher(rpc, Options{Logger: quietLogger()}).Fetch(context.Background(), testMint)

	require.True(t, report.Metadata.OK())
	assert.Equal(t, Metadata{Decimals: 9}, report.Metadata.Value)
	assert.False(t, report.Enrichment().HasMetadata())
}

func TestFetcher_RateLimited(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.SetSupply(testMint, 1)
	rpc.SetHolders(testMint, 1)

	f := NewFetcher(rpc, Options{Logger: quietLogger(), RequestsPerSecond: 1000, Burst: 1, SkipMetadata: true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	report := f.Fetch(ctx, testMint)
	assert.True(t, report.Supply.OK())
	assert.True(t, report.Holders.OK())
}

func TestFetcher_CancelledContext(t *testing.T) {
	rpc := stub.NewRPCClient()
	f := NewFetcher(rpc, Options{Logger: quietLogger(), RequestsPerSecond: 0.001, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.Fetch(ctx, testMint)
	assert.False(t, report.Supply.OK())
	assert.False(t, report.Holders.OK())
}

func TestReport_Enrichment(t *testing.T) {
	holders := make([]domain.HolderBalance, 12)
	for i := range holders {
		holders[i] = domain.HolderBalance{Amount: 10}
	}

	tests := []struct {
		name      string
		report    Report
		wantTop1  float64
		wantTop10 float64
	}{
		{
			name: "only first ten holders count",
			report: Report{
				Supply:  Result[float64]{Value: 1000},
				Holders: Result[[]domain.HolderBalance]{Value: holders},
			},
			wantTop1:  1,
			wantTop10: 10,
		},
		{
			name: "zero supply gives zero shares",
			report: Report{
				Supply:  Result[float64]{Value: 0},
				Holders: Result[[]domain.HolderBalance]{Value: holders},
			},
		},
		{
			name: "no holders",
			report: Report{
				Supply: Result[float64]{Value: 100},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.report.Enrichment()
			assert.InDelta(t, tt.wantTop1, e.TopHolderShare, 1e-9)
			assert.InDelta(t, tt.wantTop10, e.Top10HolderShare, 1e-9)
		})
	}
}
