// Package classifier turns indicator snapshots and polarity scores into
// discrete signal kinds.
package classifier

import (
	"fmt"
	"math"

	"github.com/newthinker/pulse/internal/core"
)

// Thresholds holds the classification boundaries.
type Thresholds struct {
	RSIOversold    float64
	RSIOverbought  float64
	AlertThreshold float64
}

// DefaultThresholds returns RSI 30/70 and a 0.4 polarity alert threshold.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:    30,
		RSIOverbought:  70,
		AlertThreshold: 0.4,
	}
}

// Validate checks the thresholds are ordered and in range.
func (t Thresholds) Validate() error {
	if t.RSIOversold < 0 || t.RSIOverbought > 100 || t.RSIOversold >= t.RSIOverbought {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi thresholds must satisfy 0 <= oversold < overbought <= 100, got %v/%v",
				t.RSIOversold, t.RSIOverbought))
	}
	if t.AlertThreshold <= 0 || t.AlertThreshold > 1 || math.IsNaN(t.AlertThreshold) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("alert threshold must be in (0, 1], got %v", t.AlertThreshold))
	}
	return nil
}
