package indicator

import (
	"math"
	"testing"
)

func TestRSI_InsufficientData(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
	}{
		{"empty", nil, 14},
		{"single", []float64{1}, 14},
		{"exactly period", make([]float64, 14), 14},
		{"zero period", []float64{1, 2, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := RSI(tt.prices, tt.period)
			if ok {
				t.Fatalf("expected insufficient data, got %f", v)
			}
			if !math.IsNaN(v) {
				t.Errorf("expected NaN, got %f", v)
			}
		})
	}
}

func TestRSI_Calculate(t *testing.T) {
	// deltas +1, -0.5 -> avgGain 0.5, avgLoss 0.25, rs 2
	v, ok := RSI([]float64{10, 11, 10.5}, 2)
	if !ok {
		t.Fatal("expected a value")
	}
	if !almostEqual(v, 200.0/3.0, 1e-9) {
		t.Errorf("RSI = %f, want %f", v, 200.0/3.0)
	}
}

func TestRSI_UsesTrailingWindowOnly(t *testing.T) {
	// the early crash is outside the trailing 2 deltas
	v, ok := RSI([]float64{100, 10, 11, 12}, 2)
	if !ok {
		t.Fatal("expected a value")
	}
	if v != RSISaturated {
		t.Errorf("RSI = %f, want %f", v, RSISaturated)
	}
}

func TestRSI_NoLossesIsHundred(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = float64(i)
	}
	v, ok := RSI(prices, 14)
	if !ok || v != 100 {
		t.Errorf("RSI = %f (ok=%v), want exactly 100", v, ok)
	}
}

func TestRSI_FlatIsFifty(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 42
	}
	v, ok := RSI(prices, 14)
	if !ok || v != 50 {
		t.Errorf("RSI = %f (ok=%v), want exactly 50", v, ok)
	}
}

func TestRSI_NoGainsIsZero(t *testing.T) {
	v, ok := RSI([]float64{5, 4, 3}, 2)
	if !ok || v != 0 {
		t.Errorf("RSI = %f (ok=%v), want 0", v, ok)
	}
}
