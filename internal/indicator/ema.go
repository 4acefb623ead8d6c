package indicator

// EMA calculates the exponential moving average of prices.
// The average is seeded with the first price and smoothed with
// alpha = 2/(period+1), so the result has one value per input price.
func EMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) == 0 {
		return []float64{}
	}

	result := make([]float64, len(prices))
	alpha := 2.0 / float64(period+1)

	ema := prices[0]
	result[0] = ema
	for i := 1; i < len(prices); i++ {
		ema = alpha*prices[i] + (1-alpha)*ema
		result[i] = ema
	}

	return result
}

// LastEMA folds the whole series and returns only the newest value.
func LastEMA(prices []float64, period int) (float64, bool) {
	series := EMA(prices, period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
