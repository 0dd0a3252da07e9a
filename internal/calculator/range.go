package calculator

import (
	"errors"
	"math"

	"MarketPulse/internal/model"
)

// CalculateRange scans the most recent lookback bars and returns the high and low.
// A non-positive lookback scans the whole series.
func CalculateRange(bars []model.Candle, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	n := len(bars)
	start := 0
	if lookback > 0 && n > lookback {
		start = n - lookback
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// MaxHigh returns the highest high of the whole series, 0 when empty.
func MaxHigh(bars []model.Candle) float64 {
	high, _, err := CalculateRange(bars, 0)
	if err != nil {
		return 0
	}
	return high
}
