package snapshot

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/model"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/strategy"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Evaluator computes a snapshot from priced input. *strategy.Engine is the
// production implementation.
type Evaluator interface {
	Evaluate(in strategy.Input, key strategy.Key) model.Snapshot
}

// Resolver walks the fallback ladder (live, previous session, cached,
// synthetic) and always produces a snapshot.
type Resolver struct {
	feed     collector.Feed
	store    Store
	eval     Evaluator
	recorder recorder.Recorder
	log      zerolog.Logger
	group    singleflight.Group

	// Now is the clock; replaced in tests.
	Now func() time.Time
}

// NewResolver creates a Resolver. A nil recorder disables the journal.
func NewResolver(feed collector.Feed, store Store, eval Evaluator, rec recorder.Recorder, logger zerolog.Logger) *Resolver {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Resolver{
		feed:     feed,
		store:    store,
		eval:     eval,
		recorder: rec,
		log:      logger.With().Str("component", "resolver").Logger(),
		Now:      time.Now,
	}
}

// Resolve returns the best available snapshot for symbol. It never fails:
// upstream outages and internal faults degrade to the cached or synthetic tier.
// Concurrent calls for the same symbol, mode and strategy share one resolution,
// which is not cancelled by any caller's context.
func (r *Resolver) Resolve(ctx context.Context, symbol string, mode model.Mode, key strategy.Key) model.Snapshot {
	key = strategy.ParseKey(string(key))
	flightKey := symbol + "|" + string(mode) + "|" + string(key)

	v, _, _ := r.group.Do(flightKey, func() (any, error) {
		// The flight is shared, so the first caller going away must not cancel
		// it for the rest. Each feed call still runs under its own timeout.
		return r.resolve(context.WithoutCancel(ctx), symbol, mode, key), nil
	})
	return v.(model.Snapshot).Clone()
}

// quotes is what the upstream fan-out produced for one resolution.
type quotes struct {
	trade     float64
	hasTrade  bool
	prev      model.SessionBar
	hasPrev   bool
	candles   []model.Candle
	liveOpen  float64
	liveClose float64
}

func (r *Resolver) resolve(ctx context.Context, symbol string, mode model.Mode, key strategy.Key) (snap model.Snapshot) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("symbol", symbol).Msg("resolution fault, degrading")
			snap = r.degrade(ctx, symbol, mode, key)
		}
	}()

	q := r.fetch(ctx, symbol, mode)

	// Tier 1: live. Candles for series modes, the last trade for point mode.
	if len(q.candles) > 0 {
		return r.compute(ctx, strategy.Input{
			Symbol:  symbol,
			Point:   model.PricePoint{Price: q.liveClose, OpenPrice: q.liveOpen, Source: model.TierLive},
			Candles: q.candles,
		}, mode, key)
	}
	if q.hasTrade && (mode == model.ModePoint || !q.hasPrev) {
		var open float64
		if q.hasPrev {
			open = q.prev.Open
		}
		return r.compute(ctx, strategy.Input{
			Symbol: symbol,
			Point:  model.PricePoint{Price: q.trade, OpenPrice: open, Source: model.TierLive},
		}, mode, key)
	}

	// Tier 2: previous session; the last trade wins for price when present.
	if q.hasPrev && (q.hasTrade || q.prev.Close > 0) {
		price := q.prev.Close
		if q.hasTrade {
			price = q.trade
		}
		return r.compute(ctx, strategy.Input{
			Symbol: symbol,
			Point:  model.PricePoint{Price: price, OpenPrice: q.prev.Open, Source: model.TierPreviousSession},
		}, mode, key)
	}

	// Tiers 3 and 4.
	r.log.Debug().Str("symbol", symbol).Msg("no live or previous-session price")
	return r.fallback(ctx, symbol, mode, key)
}

// fetch fans out to the feed. Last trade and previous session are always
// requested; candles only for series modes.
func (r *Resolver) fetch(ctx context.Context, symbol string, mode model.Mode) quotes {
	var q quotes
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q.trade, q.hasTrade = r.feed.LastTrade(gctx, symbol)
		return nil
	})
	g.Go(func() error {
		q.prev, q.hasPrev = r.feed.PreviousSession(gctx, symbol)
		return nil
	})
	if mode != model.ModePoint {
		g.Go(func() error {
			q.candles = r.seriesFor(gctx, symbol, mode)
			return nil
		})
	}
	_ = g.Wait()

	if n := len(q.candles); n > 0 {
		q.liveClose = q.candles[n-1].Close
		q.liveOpen = q.candles[0].Open
		if mode == model.ModeDaily && n > 1 {
			q.liveOpen = q.candles[n-2].Close
		}
	}
	return q
}

func (r *Resolver) seriesFor(ctx context.Context, symbol string, mode model.Mode) []model.Candle {
	now := r.Now().In(model.ExchangeLocation())
	if mode == model.ModeDaily {
		return r.feed.Candles(ctx, symbol, model.Day1, now.AddDate(0, -1, 0), now)
	}
	sessionStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return r.feed.Candles(ctx, symbol, model.Minute5, sessionStart, now)
}

// compute runs the engine and caches the result. Only tiers 1 and 2 reach here.
func (r *Resolver) compute(ctx context.Context, in strategy.Input, mode model.Mode, key strategy.Key) model.Snapshot {
	snap := r.eval.Evaluate(in, key)
	snap.Mode = mode
	snap.ResolvedAt = r.Now().UTC()

	r.store.Put(ctx, snap)
	r.journal(snap)
	return snap
}

// fallback serves the cached snapshot with a staleness notice, or the
// synthetic placeholder. Neither writes the cache.
func (r *Resolver) fallback(ctx context.Context, symbol string, mode model.Mode, key strategy.Key) model.Snapshot {
	if cached, ok := r.store.Get(ctx, symbol); ok {
		snap := MarkStale(cached)
		r.journal(snap)
		return snap
	}
	snap := strategy.Placeholder(symbol, key)
	snap.Mode = mode
	snap.ResolvedAt = r.Now().UTC()
	r.journal(snap)
	return snap
}

// degrade is fallback for the fault path; a second fault yields the placeholder.
func (r *Resolver) degrade(ctx context.Context, symbol string, mode model.Mode, key strategy.Key) (snap model.Snapshot) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("symbol", symbol).Msg("cache fallback fault")
			snap = strategy.Placeholder(symbol, key)
			snap.Mode = mode
			snap.ResolvedAt = r.Now().UTC()
		}
	}()
	return r.fallback(ctx, symbol, mode, key)
}

func (r *Resolver) journal(snap model.Snapshot) {
	if err := r.recorder.RecordResolution(recorder.NewResolution(snap)); err != nil {
		r.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("record resolution")
	}
}

// MarkStale relabels a cached snapshot as the cached tier. Numeric fields are
// left exactly as cached; only the summary gains a staleness notice.
func MarkStale(cached model.Snapshot) model.Snapshot {
	snap := cached.Clone()
	snap.SourceTier = model.TierCached
	snap.Summary = fmt.Sprintf("%s [stale: live data unavailable, last resolved %s]",
		cached.Summary, cached.ResolvedAt.UTC().Format(time.RFC3339))
	return snap
}
