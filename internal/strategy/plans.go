package strategy

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Key names a trade-plan strategy.
type Key string

const (
	Scalp    Key = "scalp"
	Day      Key = "day"
	Swing    Key = "swing"
	Momentum Key = "momentum"
	Mean     Key = "mean"
	Default  Key = "default"
)

// PlanSpec holds the fixed multipliers and commentary of one strategy.
// Structural plans ignore the multipliers and derive levels from support/resistance.
type PlanSpec struct {
	EntryMul   decimal.Decimal
	StopMul    decimal.Decimal
	TargetMuls []decimal.Decimal
	RiskNotes  []string
	Tone       string
	Structural bool
}

func mul(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Plans maps every strategy key to its plan. Adding a strategy is an entry here.
var Plans = map[Key]PlanSpec{
	Scalp: {
		EntryMul:   mul("1.001"),
		StopMul:    mul("0.998"),
		TargetMuls: []decimal.Decimal{mul("1.004"), mul("1.007")},
		RiskNotes: []string{
			"Scalp plan: cut quickly if the stop trades, do not average down",
			"Spreads and slippage eat most of a scalp edge in thin names",
		},
		Tone: "keep entries tight and take quick partials",
	},
	Day: {
		EntryMul:   mul("1.002"),
		StopMul:    mul("0.99"),
		TargetMuls: []decimal.Decimal{mul("1.01"), mul("1.02")},
		RiskNotes: []string{
			"Day plan: flatten before the close, no overnight exposure",
			"Respect the opening range; first-hour reversals are common",
		},
		Tone: "trade the intraday range and flatten before the close",
	},
	Swing: {
		EntryMul:   mul("1.005"),
		StopMul:    mul("0.97"),
		TargetMuls: []decimal.Decimal{mul("1.05"), mul("1.10")},
		RiskNotes: []string{
			"Swing plan: overnight gaps can skip straight through the stop",
			"Size for the wider stop so a full loss stays within risk budget",
		},
		Tone: "give the position room over several sessions",
	},
	Momentum: {
		EntryMul:   mul("1.003"),
		StopMul:    mul("0.985"),
		TargetMuls: []decimal.Decimal{mul("1.02"), mul("1.04")},
		RiskNotes: []string{
			"Momentum plan: only valid while volume confirms the move",
			"Trail the stop once the first target fills",
		},
		Tone: "lean on continuation and trail stops behind strength",
	},
	Mean: {
		EntryMul:   mul("0.985"),
		StopMul:    mul("0.975"),
		TargetMuls: []decimal.Decimal{mul("0.995"), mul("1.0")},
		RiskNotes: []string{
			"Mean-reversion plan: fading a trend day is the most common way this fails",
			"Entry sits below price; skip it if the pullback never comes",
		},
		Tone: "fade the extension back toward the average",
	},
	Default: {
		RiskNotes: []string{
			"Structure plan: stop sits just under support, targets at resistance and its measured move",
			"Levels come from recent structure and move as new bars print",
		},
		Tone:       "let the structure dictate entries and exits",
		Structural: true,
	},
}

var aliases = map[string]Key{
	"miner":          Momentum,
	"mean-reversion": Mean,
	"reversion":      Mean,
	"intraday":       Day,
}

// ParseKey maps a requested strategy or preset name onto a Key. Unknown names
// fall back to Default.
func ParseKey(s string) Key {
	k := strings.ToLower(strings.TrimSpace(s))
	if a, ok := aliases[k]; ok {
		return a
	}
	if _, ok := Plans[Key(k)]; ok {
		return Key(k)
	}
	return Default
}

// Spec returns the plan for key, falling back to Default.
func Spec(key Key) PlanSpec {
	if p, ok := Plans[key]; ok {
		return p
	}
	return Plans[Default]
}

// Round2 rounds a price to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func scale(price float64, m decimal.Decimal) float64 {
	return decimal.NewFromFloat(price).Mul(m).Round(2).InexactFloat64()
}

// Derive builds the plan for price using the strategy's multipliers, or the
// support/resistance structure for structural plans. Every multiplier is
// applied to the same price.
func (p PlanSpec) Derive(price, support, resistance float64) (entry, stop float64, targets []float64) {
	if p.Structural {
		px := decimal.NewFromFloat(price)
		// Stop sits under both the price and support; targets start above the price.
		lo := decimal.Min(decimal.NewFromFloat(support), px)
		hi := decimal.NewFromFloat(resistance)
		if hi.LessThanOrEqual(px) {
			hi = px.Mul(mul("1.01"))
		}
		entry = Round2(price)
		stop = lo.Mul(mul("0.99")).Round(2).InexactFloat64()
		targets = []float64{
			hi.Round(2).InexactFloat64(),
			hi.Add(hi.Sub(lo)).Round(2).InexactFloat64(),
		}
		return entry, stop, targets
	}
	entry = scale(price, p.EntryMul)
	stop = scale(price, p.StopMul)
	targets = make([]float64, len(p.TargetMuls))
	for i, m := range p.TargetMuls {
		targets[i] = scale(price, m)
	}
	return entry, stop, targets
}
