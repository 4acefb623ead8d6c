package indicator

import "math"

// Neutral and saturated RSI readings used when the loss average is zero.
const (
	RSIFlat      = 50.0
	RSISaturated = 100.0
)

// RSI returns the relative strength index at the newest price using simple
// averages of the trailing period gains and losses. It needs period+1 prices;
// with less history it returns NaN and false.
func RSI(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period+1 {
		return math.NaN(), false
	}

	tail := prices[len(prices)-period-1:]
	gains := make([]float64, period)
	losses := make([]float64, period)
	for i := 1; i < len(tail); i++ {
		delta := tail[i] - tail[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := SMA(gains, period)[0]
	avgLoss := SMA(losses, period)[0]

	switch {
	case avgLoss == 0 && avgGain == 0:
		return RSIFlat, true
	case avgLoss == 0:
		return RSISaturated, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
