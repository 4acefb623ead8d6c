package classifier

import (
	"fmt"
	"math"

	"github.com/newthinker/pulse/internal/core"
)

// Price classifies indicator snapshots as LONG, SHORT or NONE. It holds no
// state between calls.
type Price struct {
	oversold   float64
	overbought float64
}

// NewPrice creates a price classifier from t.
func NewPrice(t Thresholds) *Price {
	return &Price{oversold: t.RSIOversold, overbought: t.RSIOverbought}
}

// Classify returns LONG when the fast EMA is above the slow one with an
// oversold RSI and bullish funding, SHORT for the mirror case, NONE
// otherwise. Incomplete snapshots are always NONE.
func (p *Price) Classify(s core.IndicatorSnapshot) core.Kind {
	if !s.Complete() {
		return core.KindNone
	}

	switch {
	case s.EMAFast > s.EMASlow && s.RSI < p.oversold && s.FundingBias == core.FundingBullish:
		return core.KindLong
	case s.EMAFast < s.EMASlow && s.RSI > p.overbought && s.FundingBias == core.FundingBearish:
		return core.KindShort
	}
	return core.KindNone
}

// Strength scales EMA divergence to 0.5-0.9.
func (p *Price) Strength(s core.IndicatorSnapshot) float64 {
	if s.EMASlow == 0 {
		return 0.5
	}
	diff := math.Abs((s.EMAFast - s.EMASlow) / s.EMASlow)
	return math.Min(0.5+diff*10, 0.9)
}

// Evidence describes why a price signal fired.
func (p *Price) Evidence(kind core.Kind, s core.IndicatorSnapshot) string {
	return fmt.Sprintf("%s signal on %s | EMA fast %.4f vs slow %.4f | RSI = %.2f | Funding = %.6f (%s)",
		kind, s.Symbol, s.EMAFast, s.EMASlow, s.RSI, s.FundingRate, s.FundingBias)
}

// Diagnostics summarizes which conditions held when no signal fired.
func (p *Price) Diagnostics(s core.IndicatorSnapshot) string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("EMA cross: %t, RSI <%v: %t, RSI >%v: %t, Funding: %s",
		s.EMAFast != s.EMASlow,
		p.oversold, s.RSI < p.oversold,
		p.overbought, s.RSI > p.overbought,
		s.FundingBias)
}
