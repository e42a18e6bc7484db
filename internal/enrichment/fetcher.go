// Package enrichment gathers on-chain facts about a candidate mint.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"mint-watch/internal/domain"
	"mint-watch/internal/observability"
	"mint-watch/internal/solana"
)

// topHolders is the holder window used for Top10HolderShare.
const topHolders = 10

// Field names used in logs and metrics.
const (
	FieldSupply   = "supply"
	FieldHolders  = "holders"
	FieldMetadata = "metadata"
)

// errSupplyUnavailable is returned when the node reports no usable amount.
var errSupplyUnavailable = errors.New("supply amount unavailable")

// Report holds the independent fetch results for one mint.
type Report struct {
	Mint     string
	Supply   Result[float64]
	Holders  Result[[]domain.HolderBalance]
	Metadata Result[Metadata]
}

// Enrichment converts the report into scored fields.
// Failed fetches contribute zero values; shares are 0 when supply is 0.
func (r Report) Enrichment() domain.Enrichment {
	supply := r.Supply.ValueOr(0)
	holders := r.Holders.ValueOr(nil)

	var top1, top10 float64
	if len(holders) > 0 {
		top1 = holders[0].Amount
	}
	for i := 0; i < len(holders) && i < topHolders; i++ {
		top10 += holders[i].Amount
	}

	e := domain.Enrichment{Supply: supply}
	if supply != 0 {
		e.TopHolderShare = top1 / supply * 100
		e.Top10HolderShare = top10 / supply * 100
	}

	if r.Metadata.OK() {
		e.Decimals = r.Metadata.Value.Decimals
		e.Name = r.Metadata.Value.Name
		e.Symbol = r.Metadata.Value.Symbol
	}
	return e
}

// Options configures a Fetcher.
type Options struct {
	// RequestsPerSecond bounds RPC calls across all workers; 0 disables limiting.
	RequestsPerSecond float64
	// Burst is the limiter bucket size, 1 when unset.
	Burst int
	// SkipMetadata disables the metadata fetch.
	SkipMetadata bool
	Logger       logrus.FieldLogger
	Metrics      *observability.Metrics
}

// Fetcher queries the read API for supply, holders and metadata.
type Fetcher struct {
	rpc          solana.RPCClient
	limiter      *rate.Limiter
	skipMetadata bool
	log          logrus.FieldLogger
	metrics      *observability.Metrics
}

// NewFetcher creates a Fetcher over rpc.
func NewFetcher(rpc solana.RPCClient, opts Options) *Fetcher {
	f := &Fetcher{
		rpc:          rpc,
		skipMetadata: opts.SkipMetadata,
		log:          opts.Logger,
		metrics:      opts.Metrics,
	}
	if f.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		f.log = l
	}
	f.log = f.log.WithField("component", "enrichment")

	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

// Fetch runs all fetches concurrently and waits for each to finish.
// A failing fetch never prevents the others from running.
func (f *Fetcher) Fetch(ctx context.Context, mint string) Report {
	report := Report{Mint: mint}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.Supply = f.fetchSupply(ctx, mint)
	}()
	go func() {
		defer wg.Done()
		report.Holders = f.fetchHolders(ctx, mint)
	}()
	if f.skipMetadata {
		report.Metadata = failed[Metadata](errors.New("metadata disabled"))
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Metadata = f.fetchMetadata(ctx, mint)
		}()
	}
	wg.Wait()

	f.logFailure(mint, FieldSupply, report.Supply.Err)
	f.logFailure(mint, FieldHolders, report.Holders.Err)
	if !f.skipMetadata {
		f.logFailure(mint, FieldMetadata, report.Metadata.Err)
	}

	return report
}

func (f *Fetcher) fetchSupply(ctx context.Context, mint string) Result[float64] {
	if err := f.wait(ctx); err != nil {
		return failed[float64](err)
	}
	amount, err := f.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return failed[float64](fmt.Errorf("get token supply: %w", err))
	}
	v, ok := amount.Float()
	if !ok {
		return failed[float64](errSupplyUnavailable)
	}
	return succeeded(v)
}

func (f *Fetcher) fetchHolders(ctx context.Context, mint string) Result[[]domain.HolderBalance] {
	if err := f.wait(ctx); err != nil {
		return failed[[]domain.HolderBalance](err)
	}
	accounts, err := f.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return failed[[]domain.HolderBalance](fmt.Errorf("get token largest accounts: %w", err))
	}

	holders := make([]domain.HolderBalance, len(accounts))
	for i, acc := range accounts {
		amount, _ := acc.Float()
		holders[i] = domain.HolderBalance{Address: acc.Address, Amount: amount}
	}
	return succeeded(holders)
}

// fetchMetadata reads decimals from the mint account, then name and symbol
// from the Metaplex metadata account when one exists.
func (f *Fetcher) fetchMetadata(ctx context.Context, mint string) Result[Metadata] {
	if err := f.wait(ctx); err != nil {
		return failed[Metadata](err)
	}
	info, err := f.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return failed[Metadata](fmt.Errorf("get mint account: %w", err))
	}
	if info == nil {
		return failed[Metadata](errMintNotFound)
	}

	decimals, err := parseMintDecimals(info.Data)
	if err != nil {
		return failed[Metadata](err)
	}
	meta := Metadata{Decimals: decimals}

	pda, err := MetadataAddress(mint)
	if err != nil {
		return succeeded(meta)
	}
	if err := f.wait(ctx); err != nil {
		return succeeded(meta)
	}
	metaInfo, err := f.rpc.GetAccountInfo(ctx, pda)
	if err != nil || metaInfo == nil {
		// Most fresh mints have no metadata account yet.
		return succeeded(meta)
	}
	if name, symbol, found := parseMetaplexNameSymbol(metaInfo.Data); found {
		meta.Name = name
		meta.Symbol = symbol
	}
	return succeeded(meta)
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
}

func (f *Fetcher) logFailure(mint, field string, err error) {
	if err == nil {
		return
	}
	f.metrics.RecordEnrichmentFailure(field)
	f.log.WithError(err).WithFields(logrus.Fields{
		"mint":  mint,
		"field": field,
	}).Warn("Enrichment fetch failed")
}
