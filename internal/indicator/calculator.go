package indicator

import (
	"fmt"
	"math"

	"github.com/newthinker/pulse/internal/core"
)

// Config holds indicator periods and the funding threshold.
type Config struct {
	FastPeriod       int
	SlowPeriod       int
	RSIPeriod        int
	FundingThreshold float64
}

// DefaultConfig returns the 9/21 EMA, 14 RSI, zero-threshold setup.
func DefaultConfig() Config {
	return Config{
		FastPeriod:       9,
		SlowPeriod:       21,
		RSIPeriod:        14,
		FundingThreshold: 0,
	}
}

// Validate checks periods and threshold.
func (c Config) Validate() error {
	if c.FastPeriod < 1 || c.SlowPeriod < 1 || c.RSIPeriod < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("indicator periods must be positive, got fast=%d slow=%d rsi=%d",
				c.FastPeriod, c.SlowPeriod, c.RSIPeriod))
	}
	if c.FundingThreshold < 0 || math.IsNaN(c.FundingThreshold) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("funding threshold must be >= 0, got %f", c.FundingThreshold))
	}
	return nil
}

// Calculator derives an IndicatorSnapshot from a window. It keeps no state
// between calls, so the same window always yields the same snapshot.
type Calculator struct {
	cfg Config
}

// NewCalculator validates cfg and returns a calculator.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the calculator configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Compute returns indicators at the newest sample of window.
func (c *Calculator) Compute(symbol string, window []core.Sample, fundingRate float64) core.IndicatorSnapshot {
	snap := core.IndicatorSnapshot{
		Symbol:      symbol,
		RSI:         math.NaN(),
		FundingRate: fundingRate,
		FundingBias: ClassifyFunding(fundingRate, c.cfg.FundingThreshold),
		Samples:     len(window),
	}
	if len(window) == 0 {
		return snap
	}

	closes := make([]float64, len(window))
	for i, s := range window {
		closes[i] = s.Close
	}
	last := window[len(window)-1]
	snap.Time = last.Time
	snap.Close = last.Close

	snap.EMAFast, _ = LastEMA(closes, c.cfg.FastPeriod)
	snap.EMASlow, _ = LastEMA(closes, c.cfg.SlowPeriod)
	snap.EMAReady = len(closes) >= 2

	snap.RSI, snap.RSIReady = RSI(closes, c.cfg.RSIPeriod)

	return snap
}
