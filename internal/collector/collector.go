package collector

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"MarketPulse/internal/model"
)

// Chain combines feeds in priority order. Each operation returns the first
// present result; an empty chain reports absence for everything.
type Chain struct {
	feeds []Feed
}

// Ensure Chain implements Feed.
var _ Feed = (*Chain)(nil)

// NewChain creates a Chain, skipping nil feeds.
func NewChain(feeds ...Feed) *Chain {
	c := &Chain{}
	for _, f := range feeds {
		if f != nil {
			c.feeds = append(c.feeds, f)
		}
	}
	return c
}

// Len reports how many feeds are chained.
func (c *Chain) Len() int { return len(c.feeds) }

func (c *Chain) Name() string {
	names := make([]string, len(c.feeds))
	for i, f := range c.feeds {
		names[i] = f.Name()
	}
	return strings.Join(names, "+")
}

func (c *Chain) LastTrade(ctx context.Context, symbol string) (float64, bool) {
	for _, f := range c.feeds {
		if p, ok := f.LastTrade(ctx, symbol); ok {
			return p, true
		}
	}
	return 0, false
}

func (c *Chain) PreviousSession(ctx context.Context, symbol string) (model.SessionBar, bool) {
	for _, f := range c.feeds {
		if bar, ok := f.PreviousSession(ctx, symbol); ok {
			return bar, true
		}
	}
	return model.SessionBar{}, false
}

func (c *Chain) Candles(ctx context.Context, symbol string, gran model.Granularity, start, end time.Time) []model.Candle {
	for _, f := range c.feeds {
		if bars := f.Candles(ctx, symbol, gran, start, end); len(bars) > 0 {
			return bars
		}
	}
	return nil
}

func (c *Chain) SessionAggregates(ctx context.Context, date time.Time) []model.Aggregate {
	for _, f := range c.feeds {
		if aggs := f.SessionAggregates(ctx, date); len(aggs) > 0 {
			return aggs
		}
	}
	return nil
}

// MockFeed is a programmable in-memory feed for development and testing.
// Candles ignores the requested window and returns whatever was set.
type MockFeed struct {
	mu         sync.RWMutex
	trades     map[string]float64
	sessions   map[string]model.SessionBar
	series     map[string][]model.Candle
	aggregates map[string][]model.Aggregate

	calls atomic.Int64
}

// Ensure MockFeed implements Feed.
var _ Feed = (*MockFeed)(nil)

// NewMockFeed creates an empty MockFeed; every lookup reports absence.
func NewMockFeed() *MockFeed {
	return &MockFeed{
		trades:     make(map[string]float64),
		sessions:   make(map[string]model.SessionBar),
		series:     make(map[string][]model.Candle),
		aggregates: make(map[string][]model.Aggregate),
	}
}

func (m *MockFeed) Name() string { return "mock" }

// SetTrade sets the last trade for symbol.
func (m *MockFeed) SetTrade(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[symbol] = price
}

// SetSession sets the previous session bar for symbol.
func (m *MockFeed) SetSession(symbol string, bar model.SessionBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[symbol] = bar
}

// SetCandles sets the series for symbol and granularity.
func (m *MockFeed) SetCandles(symbol string, gran model.Granularity, bars []model.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[symbol+"|"+string(gran)] = bars
}

// SetAggregates sets the whole-market aggregate for a calendar date.
func (m *MockFeed) SetAggregates(date time.Time, aggs []model.Aggregate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregates[date.Format("2006-01-02")] = aggs
}

// Clear drops all programmed data, simulating a full upstream outage.
func (m *MockFeed) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = make(map[string]float64)
	m.sessions = make(map[string]model.SessionBar)
	m.series = make(map[string][]model.Candle)
	m.aggregates = make(map[string][]model.Aggregate)
}

// Calls reports how many feed operations have been served.
func (m *MockFeed) Calls() int64 { return m.calls.Load() }

func (m *MockFeed) LastTrade(_ context.Context, symbol string) (float64, bool) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.trades[symbol]
	return p, ok && p > 0
}

func (m *MockFeed) PreviousSession(_ context.Context, symbol string) (model.SessionBar, bool) {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	bar, ok := m.sessions[symbol]
	return bar, ok
}

func (m *MockFeed) Candles(_ context.Context, symbol string, gran model.Granularity, _, _ time.Time) []model.Candle {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars := m.series[symbol+"|"+string(gran)]
	return append([]model.Candle(nil), bars...)
}

func (m *MockFeed) SessionAggregates(_ context.Context, date time.Time) []model.Aggregate {
	m.calls.Add(1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	aggs := m.aggregates[date.Format("2006-01-02")]
	return append([]model.Aggregate(nil), aggs...)
}
