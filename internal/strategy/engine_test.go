package strategy

import (
	"testing"

	"MarketPulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{Time: int64(1700000000 + i*300), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

func ramp(from, to float64) []float64 {
	var out []float64
	if from <= to {
		for v := from; v <= to; v++ {
			out = append(out, v)
		}
		return out
	}
	for v := from; v >= to; v-- {
		out = append(out, v)
	}
	return out
}

func TestPlanMultipliersShareOnePrice(t *testing.T) {
	tests := []struct {
		key     Key
		price   float64
		entry   float64
		stop    float64
		targets []float64
	}{
		{Scalp, 100, 100.10, 99.80, []float64{100.40, 100.70}},
		{Day, 100, 100.20, 99.00, []float64{101.00, 102.00}},
		{Momentum, 100, 100.30, 98.50, []float64{102.00, 104.00}},
		{Swing, 250, 251.25, 242.50, []float64{262.50, 275.00}},
		{Mean, 100, 98.50, 97.50, []float64{99.50, 100.00}},
		{Scalp, 187.32, 187.51, 186.95, []float64{188.07, 188.63}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			entry, stop, targets := Spec(tt.key).Derive(tt.price, 0, 0)
			assert.Equal(t, tt.entry, entry)
			assert.Equal(t, tt.stop, stop)
			assert.Equal(t, tt.targets, targets)
		})
	}
}

func TestEveryKeyHasAPlan(t *testing.T) {
	for _, k := range []Key{Scalp, Day, Swing, Momentum, Mean, Default} {
		spec, ok := Plans[k]
		require.True(t, ok, "missing plan for %s", k)
		assert.NotEmpty(t, spec.RiskNotes)
		assert.NotEmpty(t, spec.Tone)
		if !spec.Structural {
			assert.NotEmpty(t, spec.TargetMuls)
		}
	}
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, Scalp, ParseKey(" SCALP "))
	assert.Equal(t, Momentum, ParseKey("miner"))
	assert.Equal(t, Mean, ParseKey("mean-reversion"))
	assert.Equal(t, Default, ParseKey("yolo"))
	assert.Equal(t, Default, ParseKey(""))
}

func TestEvaluate_SeriesBullish(t *testing.T) {
	e := NewEngine(0, 0)
	candles := series(ramp(1, 30)...)
	snap := e.Evaluate(Input{
		Symbol:  "AAPL",
		Point:   model.PricePoint{Price: 30, OpenPrice: 1, Source: model.TierLive},
		Candles: candles,
	}, Default)

	assert.Equal(t, model.Bullish, snap.Bias)
	assert.Equal(t, TrendUpward, snap.Trend)
	assert.Equal(t, 20.0, snap.Support)
	assert.Equal(t, 31.0, snap.Resistance)
	assert.Equal(t, 26.0, snap.Indicators.ShortMA)
	assert.Equal(t, 20.0, snap.Indicators.LongMA)
	assert.Equal(t, 30, snap.Indicators.Samples)
	assert.Equal(t, model.Plan{Entry: 30, Stop: 19.8, Targets: []float64{31, 42}}, snap.Plan)
	assert.Equal(t, model.TierLive, snap.SourceTier)
	assert.Equal(t, "default", snap.Strategy)
	assert.Contains(t, snap.Reasoning, Plans[Default].Tone)

	var sawRSI bool
	for _, n := range snap.RiskNotes {
		if len(n) > 3 && n[:3] == "RSI" {
			sawRSI = true
		}
	}
	assert.True(t, sawRSI, "steady rally should flag an overbought RSI")
}

func TestEvaluate_SeriesBearish(t *testing.T) {
	e := NewEngine(9, 21)
	snap := e.Evaluate(Input{
		Symbol:  "TSLA",
		Point:   model.PricePoint{Price: 10, OpenPrice: 40},
		Candles: series(ramp(40, 10)...),
	}, Swing)

	assert.Equal(t, model.Bearish, snap.Bias)
	assert.Equal(t, TrendDownward, snap.Trend)
	assert.Equal(t, -75.0, snap.ChangePct)
}

func TestEvaluate_DefaultPlanOnFallingSeries(t *testing.T) {
	e := NewEngine(9, 21)
	snap := e.Evaluate(Input{
		Symbol:  "INTC",
		Point:   model.PricePoint{Price: 90, OpenPrice: 110},
		Candles: series(ramp(110, 90)...),
	}, Default)

	require.Equal(t, model.Bearish, snap.Bias)
	assert.Equal(t, 100.0, snap.Support)
	assert.Equal(t, model.Plan{Entry: 90, Stop: 89.10, Targets: []float64{111, 132}}, snap.Plan)
	assert.Less(t, snap.Plan.Stop, snap.Plan.Entry)
	assert.Less(t, snap.Plan.Entry, snap.Plan.Targets[0])
}

func TestDeriveStructuralKeepsLevelsAroundPrice(t *testing.T) {
	tests := []struct {
		name                   string
		price, support, resist float64
		stop                   float64
		targets                []float64
	}{
		{"support below price", 100, 95, 110, 94.05, []float64{110, 125}},
		{"support above price", 100, 105, 110, 99, []float64{110, 120}},
		{"resistance at price", 100, 95, 100, 94.05, []float64{101, 107}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, stop, targets := Spec(Default).Derive(tt.price, tt.support, tt.resist)
			assert.Equal(t, tt.price, entry)
			assert.Equal(t, tt.stop, stop)
			assert.Equal(t, tt.targets, targets)
			assert.Less(t, stop, entry)
			assert.Less(t, entry, targets[0])
		})
	}
}

func TestEvaluate_ShortSeriesUsesFullAverage(t *testing.T) {
	e := NewEngine(9, 21)
	snap := e.Evaluate(Input{
		Symbol:  "X",
		Point:   model.PricePoint{Price: 12, OpenPrice: 10},
		Candles: series(10, 11, 12),
	}, Day)

	assert.Equal(t, 11.0, snap.Indicators.LongMA)
	assert.Equal(t, 11.0, snap.Indicators.ShortMA)
	assert.Equal(t, model.Bullish, snap.Bias)
	assert.Equal(t, TrendDownward, snap.Trend, "equal averages are not an uptrend")
	assert.Equal(t, 20.0, snap.ChangePct)
}

func TestEvaluate_PointBand(t *testing.T) {
	e := NewEngine(9, 21)
	snap := e.Evaluate(Input{
		Symbol: "MSFT",
		Point:  model.PricePoint{Price: 100, OpenPrice: 98, Source: model.TierPreviousSession},
	}, Default)

	assert.Equal(t, 99.0, snap.Support)
	assert.Equal(t, 101.0, snap.Resistance)
	assert.Equal(t, model.Bullish, snap.Bias)
	assert.Equal(t, model.Plan{Entry: 100, Stop: 98.01, Targets: []float64{101, 103}}, snap.Plan)
	assert.Equal(t, model.TierPreviousSession, snap.SourceTier)

	flat := e.Evaluate(Input{Symbol: "MSFT", Point: model.PricePoint{Price: 100}}, Scalp)
	assert.Equal(t, model.Neutral, flat.Bias)
	assert.Equal(t, 0.0, flat.ChangePct)
	assert.Equal(t, []float64{100.40, 100.70}, flat.Plan.Targets)
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := NewEngine(9, 21)
	in := Input{Symbol: "NVDA", Point: model.PricePoint{Price: 30, OpenPrice: 5}, Candles: series(ramp(5, 30)...)}
	assert.Equal(t, e.Evaluate(in, Momentum), e.Evaluate(in, Momentum))
}

func TestPlaceholder(t *testing.T) {
	snap := Placeholder("ZZZZ", "scalp")
	assert.Equal(t, model.Unavailable, snap.Bias)
	assert.Equal(t, model.TierSynthetic, snap.SourceTier)
	require.NotNil(t, snap.Plan.Targets)
	assert.Empty(t, snap.Plan.Targets)
	assert.NotEmpty(t, snap.RiskNotes)
	assert.NotEmpty(t, snap.Summary)
	assert.NotEmpty(t, snap.Reasoning)
}

func TestReasoningByBias(t *testing.T) {
	assert.Contains(t, Reasoning(model.Bullish, 10, 12, "tone-x"), "tone-x")
	assert.Contains(t, Reasoning(model.Bearish, 10, 12, "tone-y"), "12.00")
	assert.Contains(t, Reasoning(model.Neutral, 10, 12, "tone-z"), "10.00")
	assert.NotEmpty(t, Reasoning(model.Unavailable, 0, 0, ""))
}
