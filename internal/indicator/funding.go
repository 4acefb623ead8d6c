package indicator

import "github.com/newthinker/pulse/internal/core"

// ClassifyFunding maps a funding rate to a bias around a symmetric threshold.
func ClassifyFunding(rate, threshold float64) core.FundingBias {
	switch {
	case rate > threshold:
		return core.FundingBullish
	case rate < -threshold:
		return core.FundingBearish
	default:
		return core.FundingNeutral
	}
}
