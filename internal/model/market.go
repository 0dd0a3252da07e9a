package model

import "time"

// Granularity is the bar width requested from a feed.
type Granularity string

const (
	Minute5 Granularity = "5m"
	Hour1   Granularity = "1h"
	Day1    Granularity = "1d"
)

// Candle represents a single OHLC bar. Time is epoch seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// At returns the candle open time.
func (c Candle) At() time.Time {
	return time.Unix(c.Time, 0)
}

// SessionBar is the open/close of one completed trading session.
type SessionBar struct {
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Aggregate is one symbol's row of a whole-market daily aggregate.
type Aggregate struct {
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// DollarVolume is close * volume, the liquidity rank key.
func (a Aggregate) DollarVolume() float64 {
	return a.Close * a.Volume
}

// Mover is one entry of the movers ranking.
type Mover struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// Closes extracts close prices in series order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

var exchangeLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()

// ExchangeLocation is the US equities exchange time zone.
func ExchangeLocation() *time.Location {
	return exchangeLoc
}
