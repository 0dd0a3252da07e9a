package model

import (
	"strings"
	"time"
)

// Bias is the directional lean assigned to a symbol.
type Bias string

const (
	Bullish     Bias = "Bullish"
	Bearish     Bias = "Bearish"
	Neutral     Bias = "Neutral"
	Unavailable Bias = "Unavailable"
)

// Tier is the rung of the fallback ladder a snapshot was served from.
type Tier string

const (
	TierLive            Tier = "Live"
	TierPreviousSession Tier = "PreviousSession"
	TierCached          Tier = "Cached"
	TierSynthetic       Tier = "Synthetic"
)

// Mode selects how the live tier prices a symbol.
type Mode string

const (
	// ModeIntraday prices from today's 5-minute candles.
	ModeIntraday Mode = "intraday"
	// ModeDaily prices from roughly one month of daily candles.
	ModeDaily Mode = "daily"
	// ModePoint prices from the last trade only.
	ModePoint Mode = "point"
)

// ParseMode maps a request mode onto a Mode, defaulting to intraday.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "swing", "1d":
		return ModeDaily
	case "point", "quote", "last", "price":
		return ModePoint
	default:
		return ModeIntraday
	}
}

// PricePoint is a resolved price with its session baseline.
type PricePoint struct {
	Price     float64
	OpenPrice float64
	Source    Tier
}

// ChangePct returns the percent change from OpenPrice, or 0 when the baseline is unknown.
func (p PricePoint) ChangePct() float64 {
	if p.OpenPrice == 0 {
		return 0
	}
	return (p.Price - p.OpenPrice) / p.OpenPrice * 100
}

// Plan is the entry/stop/target set attached to a snapshot.
type Plan struct {
	Entry   float64   `json:"entry"`
	Stop    float64   `json:"stop"`
	Targets []float64 `json:"targets"`
}

// Indicators are the computed series statistics behind a snapshot.
type Indicators struct {
	ShortMA float64 `json:"short_ma"`
	LongMA  float64 `json:"long_ma"`
	RSI     float64 `json:"rsi"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Samples int     `json:"samples"`
}

// Snapshot is the resolved, user-facing state of a symbol. Values are never
// mutated once built; a fresher snapshot replaces the old one.
type Snapshot struct {
	Symbol     string     `json:"symbol"`
	Price      float64    `json:"price"`
	ChangePct  float64    `json:"change_pct"`
	Bias       Bias       `json:"bias"`
	Trend      string     `json:"trend"`
	Support    float64    `json:"support"`
	Resistance float64    `json:"resistance"`
	Plan       Plan       `json:"plan"`
	RiskNotes  []string   `json:"risk_notes"`
	Summary    string     `json:"summary"`
	Reasoning  string     `json:"reasoning"`
	SourceTier Tier       `json:"source_tier"`
	Strategy   string     `json:"strategy"`
	Mode       Mode       `json:"mode"`
	Indicators Indicators `json:"indicators"`
	ResolvedAt time.Time  `json:"resolved_at"`
}

// Clone returns a deep copy so callers can annotate without touching shared slices.
func (s Snapshot) Clone() Snapshot {
	c := s
	if s.Plan.Targets != nil {
		c.Plan.Targets = make([]float64, len(s.Plan.Targets))
		copy(c.Plan.Targets, s.Plan.Targets)
	}
	if s.RiskNotes != nil {
		c.RiskNotes = make([]string, len(s.RiskNotes))
		copy(c.RiskNotes, s.RiskNotes)
	}
	return c
}
