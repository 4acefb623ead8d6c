// Package collector defines the fetch layer that feeds the engine.
package collector

import (
	"context"

	"github.com/newthinker/pulse/internal/core"
)

// MarketCollector supplies closed bars and the current funding rate for
// perpetual instruments.
type MarketCollector interface {
	Name() string

	// FetchBars returns up to limit closed bars, oldest first.
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]core.Sample, error)

	// FetchFundingRate returns the latest funding rate as a fraction
	// (0.0001 is 0.01%).
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
}

// TextSource is one news feed. Every item it returns carries the source's
// group.
type TextSource interface {
	Name() string
	Group() string
	Fetch(ctx context.Context) ([]core.TextItem, error)
}
