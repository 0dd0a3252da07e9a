package strategy

import (
	"fmt"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

const (
	// DefaultShortWindow and DefaultLongWindow are the moving-average sample windows.
	DefaultShortWindow = 9
	DefaultLongWindow  = 21

	rsiPeriod      = 14
	rsiOverbought  = 70.0
	rsiOversold    = 30.0
	pointBandRatio = 0.01
)

const (
	TrendUpward   = "Upward"
	TrendDownward = "Downward"
	TrendFlat     = "Flat"
	TrendUnknown  = "Unknown"
)

// Input is what the engine sees for one resolution. Candles is empty when only
// a point price is known.
type Input struct {
	Symbol  string
	Point   model.PricePoint
	Candles []model.Candle
}

// Engine turns a priced series into bias, levels and a plan. It does no I/O.
type Engine struct {
	ShortWindow int
	LongWindow  int
}

// NewEngine creates an Engine, substituting defaults for non-positive windows.
func NewEngine(shortWindow, longWindow int) *Engine {
	if shortWindow <= 0 {
		shortWindow = DefaultShortWindow
	}
	if longWindow <= 0 {
		longWindow = DefaultLongWindow
	}
	return &Engine{ShortWindow: shortWindow, LongWindow: longWindow}
}

// Evaluate computes the full snapshot for in under the given strategy. The
// caller stamps Mode and ResolvedAt.
func (e *Engine) Evaluate(in Input, key Key) model.Snapshot {
	key = ParseKey(string(key))
	spec := Spec(key)
	price := in.Point.Price

	var (
		bias                model.Bias
		trend               string
		support, resistance float64
		ind                 model.Indicators
		notes               []string
	)

	if len(in.Candles) > 0 {
		closes := model.Closes(in.Candles)
		shortMA := calculator.MovingAverage(closes, e.ShortWindow)
		longMA := calculator.MovingAverage(closes, e.LongWindow)

		switch {
		case price > longMA:
			bias = model.Bullish
		case price < longMA:
			bias = model.Bearish
		default:
			bias = model.Neutral
		}
		trend = TrendDownward
		if shortMA > longMA {
			trend = TrendUpward
		}
		support = longMA
		resistance = calculator.MaxHigh(in.Candles)

		high, low, _ := calculator.CalculateRange(in.Candles, 0)
		rsi, _ := calculator.CalculateRSI(in.Candles, rsiPeriod)
		ind = model.Indicators{
			ShortMA: Round2(shortMA),
			LongMA:  Round2(longMA),
			RSI:     Round2(rsi),
			High:    Round2(high),
			Low:     Round2(low),
			Samples: len(in.Candles),
		}
		if len(in.Candles) > rsiPeriod {
			switch {
			case rsi > rsiOverbought:
				notes = append(notes, fmt.Sprintf("RSI %.0f: stretched to the upside, avoid chasing", rsi))
			case rsi < rsiOversold:
				notes = append(notes, fmt.Sprintf("RSI %.0f: washed out, expect violent bounces", rsi))
			}
		}
	} else {
		support = price * (1 - pointBandRatio)
		resistance = price * (1 + pointBandRatio)
		open := in.Point.OpenPrice
		switch {
		case open == 0 || price == open:
			bias, trend = model.Neutral, TrendFlat
		case price > open:
			bias, trend = model.Bullish, TrendUpward
		default:
			bias, trend = model.Bearish, TrendDownward
		}
		notes = append(notes, "Only a point price is available; levels are a fixed 1% band, not structure")
	}

	entry, stop, targets := spec.Derive(price, support, resistance)
	support, resistance = Round2(support), Round2(resistance)

	snap := model.Snapshot{
		Symbol:     in.Symbol,
		Price:      Round2(price),
		ChangePct:  Round2(in.Point.ChangePct()),
		Bias:       bias,
		Trend:      trend,
		Support:    support,
		Resistance: resistance,
		Plan:       model.Plan{Entry: entry, Stop: stop, Targets: targets},
		RiskNotes:  append(append([]string{}, spec.RiskNotes...), notes...),
		Reasoning:  Reasoning(bias, support, resistance, spec.Tone),
		SourceTier: in.Point.Source,
		Strategy:   string(key),
		Indicators: ind,
	}
	snap.Summary = Summary(snap)
	return snap
}

var placeholderNotes = []string{
	"No confirmed price flow for this symbol from any feed",
	"Do not trade from this snapshot; levels cannot be drawn without a price",
}

// Placeholder is the terminal snapshot served when no price, live or cached,
// exists for symbol.
func Placeholder(symbol string, key Key) model.Snapshot {
	key = ParseKey(string(key))
	snap := model.Snapshot{
		Symbol:     symbol,
		Bias:       model.Unavailable,
		Trend:      TrendUnknown,
		Plan:       model.Plan{Targets: []float64{}},
		RiskNotes:  append([]string{}, placeholderNotes...),
		Reasoning:  Reasoning(model.Unavailable, 0, 0, ""),
		SourceTier: model.TierSynthetic,
		Strategy:   string(key),
	}
	snap.Summary = fmt.Sprintf("%s: market data unavailable right now", symbol)
	return snap
}

// Summary renders the one-line headline of a snapshot.
func Summary(s model.Snapshot) string {
	return fmt.Sprintf("%s %.2f (%+.2f%%) | %s | %s trend | %s plan",
		s.Symbol, s.Price, s.ChangePct, s.Bias, s.Trend, s.Strategy)
}
