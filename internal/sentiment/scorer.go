// Package sentiment maps text to a polarity score in [-1, 1].
package sentiment

import (
	"context"
	"math"
)

// Scorer scores a unit of text. Empty or unscorable text scores 0.
type Scorer interface {
	Name() string
	Score(ctx context.Context, text string) (float64, error)
}

// Func adapts a plain function to the Scorer interface.
type Func func(text string) float64

func (f Func) Name() string { return "func" }

func (f Func) Score(_ context.Context, text string) (float64, error) {
	return Clamp(f(text)), nil
}

// Clamp bounds p to [-1, 1]; NaN becomes 0.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	case p < -1:
		return -1
	}
	return p
}
