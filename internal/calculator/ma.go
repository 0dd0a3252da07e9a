package calculator

import "errors"

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage returns the SMA over window, or the average of the whole
// series when it holds fewer samples than the window. Empty input yields 0.
func MovingAverage(prices []float64, window int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if ma, err := CalculateSMA(prices, window); err == nil {
		return ma
	}
	ma, _ := CalculateSMA(prices, len(prices))
	return ma
}
