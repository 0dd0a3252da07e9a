package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/model"
	"MarketPulse/internal/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)

func newTestResolver(feed collector.Feed, store Store) *Resolver {
	r := NewResolver(feed, store, strategy.NewEngine(0, 0), nil, zerolog.Nop())
	r.Now = func() time.Time { return fixedNow }
	return r
}

func candles(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{Time: fixedNow.Unix() + int64(i*300), Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 1000}
	}
	return out
}

type panicEval struct{}

func (panicEval) Evaluate(strategy.Input, strategy.Key) model.Snapshot { panic("boom") }

func assertWellFormed(t *testing.T, s model.Snapshot) {
	t.Helper()
	assert.NotEmpty(t, s.Bias)
	assert.NotEmpty(t, s.Summary)
	assert.NotNil(t, s.Plan.Targets)
	assert.NotEmpty(t, s.SourceTier)
}

func TestResolve_LivePoint(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("AAPL", 100)
	feed.SetSession("AAPL", model.SessionBar{Open: 98, Close: 99})
	store := NewMemoryStore()

	snap := newTestResolver(feed, store).Resolve(context.Background(), "AAPL", model.ModePoint, strategy.Scalp)

	assertWellFormed(t, snap)
	assert.Equal(t, model.TierLive, snap.SourceTier)
	assert.Equal(t, 100.0, snap.Price)
	assert.Equal(t, 2.04, snap.ChangePct)
	assert.Equal(t, model.Bullish, snap.Bias)
	assert.Equal(t, model.Plan{Entry: 100.10, Stop: 99.80, Targets: []float64{100.40, 100.70}}, snap.Plan)
	assert.Equal(t, model.ModePoint, snap.Mode)
	assert.Equal(t, fixedNow, snap.ResolvedAt)

	cached, ok := store.Get(context.Background(), "AAPL")
	require.True(t, ok)
	assert.Equal(t, snap, cached)
}

func TestResolve_IntradaySeries(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetCandles("MSFT", model.Minute5, candles(10, 10.5, 11))
	feed.SetTrade("MSFT", 50)

	snap := newTestResolver(feed, NewMemoryStore()).Resolve(context.Background(), "MSFT", model.ModeIntraday, strategy.Day)

	assert.Equal(t, model.TierLive, snap.SourceTier)
	assert.Equal(t, 11.0, snap.Price, "series close wins over last trade")
	assert.Equal(t, 10.0, snap.ChangePct)
	assert.Equal(t, 3, snap.Indicators.Samples)
	assert.Equal(t, 10.5, snap.Support)
	assert.Equal(t, 11.5, snap.Resistance)
}

func TestResolve_DailyBaselineIsPriorClose(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetCandles("SPY", model.Day1, candles(10, 11, 12))

	snap := newTestResolver(feed, NewMemoryStore()).Resolve(context.Background(), "SPY", model.ModeDaily, strategy.Swing)

	assert.Equal(t, 12.0, snap.Price)
	assert.Equal(t, 9.09, snap.ChangePct)
	assert.Equal(t, model.ModeDaily, snap.Mode)
}

func TestResolve_SeriesModeWithOnlyTrade(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("AMD", 200)

	snap := newTestResolver(feed, NewMemoryStore()).Resolve(context.Background(), "AMD", model.ModeIntraday, strategy.Default)

	assert.Equal(t, model.TierLive, snap.SourceTier)
	assert.Equal(t, 0.0, snap.ChangePct, "unknown baseline yields zero change")
	assert.Equal(t, 198.0, snap.Support)
	assert.Equal(t, 202.0, snap.Resistance)
	assert.Equal(t, model.Neutral, snap.Bias)
}

func TestResolve_PreviousSession(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetSession("IBM", model.SessionBar{Open: 50, Close: 55})
	store := NewMemoryStore()

	snap := newTestResolver(feed, store).Resolve(context.Background(), "IBM", model.ModePoint, strategy.Mean)

	assert.Equal(t, model.TierPreviousSession, snap.SourceTier)
	assert.Equal(t, 55.0, snap.Price)
	assert.Equal(t, 10.0, snap.ChangePct)
	assert.Equal(t, 1, store.Len())
}

func TestResolve_SeriesModeTradeOverPreviousClose(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("ORCL", 120)
	feed.SetSession("ORCL", model.SessionBar{Open: 100, Close: 110})

	snap := newTestResolver(feed, NewMemoryStore()).Resolve(context.Background(), "ORCL", model.ModeIntraday, strategy.Default)

	assert.Equal(t, model.TierPreviousSession, snap.SourceTier)
	assert.Equal(t, 120.0, snap.Price, "last trade wins over previous close")
	assert.Equal(t, 20.0, snap.ChangePct, "previous open is the baseline")
	assert.Equal(t, model.Bullish, snap.Bias)
}

func TestResolve_CachedOnOutage(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("NVDA", 900)
	feed.SetSession("NVDA", model.SessionBar{Open: 880, Close: 890})
	store := NewMemoryStore()
	r := newTestResolver(feed, store)
	ctx := context.Background()

	fresh := r.Resolve(ctx, "NVDA", model.ModePoint, strategy.Momentum)
	feed.Clear()
	stale := r.Resolve(ctx, "NVDA", model.ModePoint, strategy.Momentum)

	assert.Equal(t, model.TierCached, stale.SourceTier)
	assert.Equal(t, fresh.Price, stale.Price)
	assert.Equal(t, fresh.ChangePct, stale.ChangePct)
	assert.Equal(t, fresh.Support, stale.Support)
	assert.Equal(t, fresh.Resistance, stale.Resistance)
	assert.Equal(t, fresh.Plan, stale.Plan)
	assert.Equal(t, fresh.Indicators, stale.Indicators)
	assert.Equal(t, fresh.Bias, stale.Bias)
	assert.True(t, strings.HasPrefix(stale.Summary, fresh.Summary))
	assert.Contains(t, stale.Summary, "stale")

	cached, _ := store.Get(ctx, "NVDA")
	assert.Equal(t, model.TierLive, cached.SourceTier, "cached tier never writes back")
}

func TestResolve_SyntheticWhenNothingKnown(t *testing.T) {
	store := NewMemoryStore()
	snap := newTestResolver(collector.NewMockFeed(), store).Resolve(context.Background(), "ZZZZ", model.ModeIntraday, "scalp")

	assertWellFormed(t, snap)
	assert.Equal(t, model.Unavailable, snap.Bias)
	assert.Equal(t, model.TierSynthetic, snap.SourceTier)
	assert.Empty(t, snap.Plan.Targets)
	assert.Equal(t, 0, store.Len(), "synthetic snapshots are not cached")
}

func TestResolve_Idempotent(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("TSLA", 175.5)
	feed.SetSession("TSLA", model.SessionBar{Open: 180, Close: 178})
	r := newTestResolver(feed, NewMemoryStore())
	ctx := context.Background()

	a := r.Resolve(ctx, "TSLA", model.ModePoint, strategy.Swing)
	b := r.Resolve(ctx, "TSLA", model.ModePoint, strategy.Swing)
	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.Bias, b.Bias)
	assert.Equal(t, a.Plan, b.Plan)
}

func TestResolve_FaultFallsBackToCache(t *testing.T) {
	feed := collector.NewMockFeed()
	feed.SetTrade("META", 500)
	store := NewMemoryStore()
	ctx := context.Background()

	good := newTestResolver(feed, store).Resolve(ctx, "META", model.ModePoint, strategy.Day)

	faulty := NewResolver(feed, store, panicEval{}, nil, zerolog.Nop())
	snap := faulty.Resolve(ctx, "META", model.ModePoint, strategy.Day)
	assert.Equal(t, model.TierCached, snap.SourceTier)
	assert.Equal(t, good.Plan, snap.Plan)

	snap = faulty.Resolve(ctx, "NFLX", model.ModePoint, strategy.Day)
	assert.Equal(t, model.TierSynthetic, snap.SourceTier, "fault with no cache serves the placeholder")
	assert.Equal(t, model.Unavailable, snap.Bias)
}

func TestResolve_ConcurrentSymbols(t *testing.T) {
	feed := collector.NewMockFeed()
	for i := 0; i < 20; i++ {
		feed.SetTrade(fmt.Sprintf("S%d", i), float64(10+i))
	}
	store := NewMemoryStore()
	r := newTestResolver(feed, store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sym := fmt.Sprintf("S%d", i)
				snap := r.Resolve(context.Background(), sym, model.ModePoint, strategy.Scalp)
				assert.Equal(t, sym, snap.Symbol)
				assert.Equal(t, float64(10+i), snap.Price)
			}(i)
		}
	}
	wg.Wait()
	assert.Equal(t, 20, store.Len())
}

// gatedFeed holds every quote until gate closes. A call whose context is
// cancelled while waiting reports absence, as a real HTTP feed would.
type gatedFeed struct {
	*collector.MockFeed
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
	trades  atomic.Int32
}

func newGatedFeed() *gatedFeed {
	return &gatedFeed{MockFeed: collector.NewMockFeed(), gate: make(chan struct{}), entered: make(chan struct{})}
}

func (g *gatedFeed) wait(ctx context.Context) bool {
	select {
	case <-g.gate:
		return ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}

func (g *gatedFeed) LastTrade(ctx context.Context, symbol string) (float64, bool) {
	g.trades.Add(1)
	g.once.Do(func() { close(g.entered) })
	if !g.wait(ctx) {
		return 0, false
	}
	return g.MockFeed.LastTrade(ctx, symbol)
}

func (g *gatedFeed) PreviousSession(ctx context.Context, symbol string) (model.SessionBar, bool) {
	if !g.wait(ctx) {
		return model.SessionBar{}, false
	}
	return g.MockFeed.PreviousSession(ctx, symbol)
}

func TestResolve_SharedFlightSurvivesCallerCancel(t *testing.T) {
	feed := newGatedFeed()
	feed.SetTrade("AAPL", 100)
	feed.SetSession("AAPL", model.SessionBar{Open: 98, Close: 99})
	r := newTestResolver(feed, NewMemoryStore())

	leaderCtx, cancel := context.WithCancel(context.Background())
	var leader, follower model.Snapshot
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		leader = r.Resolve(leaderCtx, "AAPL", model.ModePoint, strategy.Scalp)
	}()
	<-feed.entered
	go func() {
		defer wg.Done()
		follower = r.Resolve(context.Background(), "AAPL", model.ModePoint, strategy.Scalp)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(feed.gate)
	wg.Wait()

	assert.Equal(t, int32(1), feed.trades.Load(), "both callers share one resolution")
	for _, snap := range []model.Snapshot{leader, follower} {
		assert.Equal(t, model.TierLive, snap.SourceTier)
		assert.Equal(t, 100.0, snap.Price)
		assert.Equal(t, model.Bullish, snap.Bias)
	}
}

func TestMarkStaleKeepsNumbers(t *testing.T) {
	orig := model.Snapshot{Symbol: "X", Price: 1.23, Summary: "X 1.23", SourceTier: model.TierLive, RiskNotes: []string{"a"}}
	stale := MarkStale(orig)
	assert.Equal(t, model.TierCached, stale.SourceTier)
	assert.Equal(t, 1.23, stale.Price)
	stale.RiskNotes[0] = "mutated"
	assert.Equal(t, "a", orig.RiskNotes[0])
}
