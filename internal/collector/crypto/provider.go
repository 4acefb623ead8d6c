package crypto

import (
	"context"

	"github.com/newthinker/pulse/internal/core"
)

// Provider is one exchange's perpetual-futures market data API.
type Provider interface {
	// Name returns the provider identifier, e.g. "binance".
	Name() string

	// FetchBars returns closed bars for a normalized symbol ("BTCUSDT"),
	// oldest first. interval is one of "1m", "5m", "15m", "1h", "4h", "1d".
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]core.Sample, error)

	// FetchFundingRate returns the current funding rate for symbol.
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
}
