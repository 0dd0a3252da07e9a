package scheduler

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/model"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/strategy"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultUniverseSize = 500
	DefaultMoversSize   = 25
	DefaultWorkers      = 8

	// maxLookbackDays bounds the walk back to the most recent session.
	maxLookbackDays = 7
)

// ScannerConfig sizes the universe, the ranking and the worker pool.
type ScannerConfig struct {
	UniverseSize int
	MoversSize   int
	Workers      int
}

// Scanner maintains the liquid universe and the movers ranking. Both are
// immutable slices swapped atomically; readers never see a partial update.
type Scanner struct {
	feed     collector.Feed
	cfg      ScannerConfig
	recorder recorder.Recorder
	log      zerolog.Logger

	universe atomic.Pointer[[]string]
	movers   atomic.Pointer[[]model.Mover]
	lastScan atomic.Pointer[time.Time]

	// Now is the clock; replaced in tests.
	Now func() time.Time
}

// NewScanner creates a Scanner, substituting defaults for non-positive sizes.
func NewScanner(feed collector.Feed, cfg ScannerConfig, rec recorder.Recorder, logger zerolog.Logger) *Scanner {
	if cfg.UniverseSize <= 0 {
		cfg.UniverseSize = DefaultUniverseSize
	}
	if cfg.MoversSize <= 0 {
		cfg.MoversSize = DefaultMoversSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scanner{
		feed:     feed,
		cfg:      cfg,
		recorder: rec,
		log:      logger.With().Str("component", "scanner").Logger(),
		Now:      time.Now,
	}
}

// Universe returns the current liquid universe, most liquid first.
func (s *Scanner) Universe() []string {
	if p := s.universe.Load(); p != nil {
		return *p
	}
	return nil
}

// Movers returns the latest ranking by absolute change, largest first.
func (s *Scanner) Movers() []model.Mover {
	if p := s.movers.Load(); p != nil {
		return *p
	}
	return nil
}

// LastScan returns when the last scan cycle completed, zero if none has. A
// cycle skipped for want of a universe does not count.
func (s *Scanner) LastScan() time.Time {
	if p := s.lastScan.Load(); p != nil {
		return *p
	}
	return time.Time{}
}

// BuildUniverse ranks the most recent completed session by dollar volume and
// keeps the top UniverseSize symbols. It walks back from yesterday in exchange
// time, skipping weekends, for at most a week. When no session has data the
// existing universe is left untouched. Returns the number of symbols kept.
func (s *Scanner) BuildUniverse(ctx context.Context) int {
	today := s.Now().In(model.ExchangeLocation())

	for back := 1; back <= maxLookbackDays; back++ {
		day := today.AddDate(0, 0, -back)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		aggs := s.feed.SessionAggregates(ctx, day)
		if len(aggs) == 0 {
			continue
		}

		ranked := rankByLiquidity(aggs, s.cfg.UniverseSize)
		s.universe.Store(&ranked)

		date := day.Format("2006-01-02")
		s.log.Info().Str("session", date).Int("candidates", len(aggs)).Int("kept", len(ranked)).Msg("universe rebuilt")
		if err := s.recorder.RecordUniverse(&recorder.UniverseBuild{SessionDate: date, Candidates: len(aggs), Kept: len(ranked)}); err != nil {
			s.log.Warn().Err(err).Msg("record universe")
		}
		return len(ranked)
	}

	s.log.Warn().Int("lookback_days", maxLookbackDays).Msg("no session aggregates found, universe unchanged")
	if err := s.recorder.RecordUniverse(&recorder.UniverseBuild{}); err != nil {
		s.log.Warn().Err(err).Msg("record universe")
	}
	return 0
}

func rankByLiquidity(aggs []model.Aggregate, limit int) []string {
	valid := make([]model.Aggregate, 0, len(aggs))
	seen := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		if a.Symbol == "" || a.Close <= 0 || a.Volume <= 0 || seen[a.Symbol] {
			continue
		}
		seen[a.Symbol] = true
		valid = append(valid, a)
	}
	sort.Slice(valid, func(i, j int) bool {
		di, dj := valid[i].DollarVolume(), valid[j].DollarVolume()
		if di != dj {
			return di > dj
		}
		return valid[i].Symbol < valid[j].Symbol
	})
	if len(valid) > limit {
		valid = valid[:limit]
	}
	out := make([]string, len(valid))
	for i, a := range valid {
		out[i] = a.Symbol
	}
	return out
}

// ScanOnce reprices the universe and publishes a fresh movers ranking. A
// symbol lacking a last trade or a previous-session open is skipped; no
// per-symbol failure aborts the cycle. With no universe the cycle is
// journalled as empty and LastScan is left as it was.
func (s *Scanner) ScanOnce(ctx context.Context) []model.Mover {
	started := s.Now()

	if len(s.Universe()) == 0 {
		s.BuildUniverse(ctx)
	}
	universe := s.Universe()
	if len(universe) == 0 {
		s.log.Warn().Msg("empty universe, scan skipped")
		if err := s.recorder.RecordScan(&recorder.ScanCycle{StartedAt: started, Duration: s.Now().Sub(started)}); err != nil {
			s.log.Warn().Err(err).Msg("record scan")
		}
		return s.Movers()
	}

	priced := make([]*model.Mover, len(universe))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, sym := range universe {
		g.Go(func() error {
			priced[i] = s.price(gctx, sym)
			return nil
		})
	}
	_ = g.Wait()

	movers := make([]model.Mover, 0, len(priced))
	for _, m := range priced {
		if m != nil {
			movers = append(movers, *m)
		}
	}
	skipped := len(universe) - len(movers)
	movers = rankMovers(movers, s.cfg.MoversSize)

	s.movers.Store(&movers)
	s.markScanned()

	cycle := &recorder.ScanCycle{
		StartedAt:    started,
		Duration:     s.Now().Sub(started),
		UniverseSize: len(universe),
		Priced:       len(universe) - skipped,
		Skipped:      skipped,
	}
	if len(movers) > 0 {
		cycle.TopSymbol, cycle.TopChange = movers[0].Symbol, movers[0].ChangePct
	}
	s.log.Info().Int("universe", cycle.UniverseSize).Int("priced", cycle.Priced).Int("skipped", skipped).
		Str("top", cycle.TopSymbol).Float64("top_change", cycle.TopChange).Msg("scan complete")
	if err := s.recorder.RecordScan(cycle); err != nil {
		s.log.Warn().Err(err).Msg("record scan")
	}
	return movers
}

// price fetches one symbol; nil means skipped. A fault in one symbol is
// contained to that symbol.
func (s *Scanner) price(ctx context.Context, sym string) (m *model.Mover) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Str("symbol", sym).Msg("symbol fetch fault")
			m = nil
		}
	}()

	last, ok := s.feed.LastTrade(ctx, sym)
	if !ok {
		return nil
	}
	prev, ok := s.feed.PreviousSession(ctx, sym)
	if !ok || prev.Open <= 0 {
		return nil
	}
	pp := model.PricePoint{Price: last, OpenPrice: prev.Open}
	return &model.Mover{
		Symbol:    sym,
		Price:     strategy.Round2(last),
		ChangePct: strategy.Round2(pp.ChangePct()),
	}
}

func rankMovers(movers []model.Mover, limit int) []model.Mover {
	sort.Slice(movers, func(i, j int) bool {
		ai, aj := math.Abs(movers[i].ChangePct), math.Abs(movers[j].ChangePct)
		if ai != aj {
			return ai > aj
		}
		return movers[i].Symbol < movers[j].Symbol
	})
	if len(movers) > limit {
		movers = movers[:limit]
	}
	return movers
}

func (s *Scanner) markScanned() {
	now := s.Now()
	s.lastScan.Store(&now)
}
