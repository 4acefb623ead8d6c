// Package crypto collects perpetual-futures bars and funding rates with
// fallback across exchanges.
package crypto

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/collector/crypto/binance"
	"github.com/newthinker/pulse/internal/collector/crypto/okx"
	"github.com/newthinker/pulse/internal/collector/crypto/pair"
	"github.com/newthinker/pulse/internal/core"
)

// Collector implements collector.MarketCollector over an ordered list of
// providers. The first provider that answers wins.
type Collector struct {
	providers    []Provider
	defaultQuote string
	logger       *zap.Logger
}

// New creates a collector trying providers in order.
func New(providers []Provider, defaultQuote string, logger *zap.Logger) *Collector {
	if defaultQuote == "" {
		defaultQuote = "USDT"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		providers:    providers,
		defaultQuote: defaultQuote,
		logger:       logger,
	}
}

func (c *Collector) Name() string {
	return "crypto"
}

// Normalize validates symbol and converts it to exchange form.
func (c *Collector) Normalize(symbol string) (string, error) {
	if err := pair.Validate(symbol); err != nil {
		return "", err
	}
	return pair.Normalize(symbol, c.defaultQuote), nil
}

// FetchBars fetches closed bars with provider fallback.
func (c *Collector) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]core.Sample, error) {
	normalized, err := c.Normalize(symbol)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, p := range c.providers {
		bars, err := p.FetchBars(ctx, normalized, interval, limit)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if err != nil {
			lastErr = err
			c.logger.Debug("provider failed",
				zap.String("provider", p.Name()),
				zap.String("symbol", normalized),
				zap.Error(err),
			)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("all providers failed for %s: %w", normalized, lastErr))
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", normalized))
}

// FetchFundingRate fetches the funding rate with provider fallback.
func (c *Collector) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	normalized, err := c.Normalize(symbol)
	if err != nil {
		return 0, err
	}

	var lastErr error
	for _, p := range c.providers {
		rate, err := p.FetchFundingRate(ctx, normalized)
		if err == nil {
			return rate, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return 0, core.WrapError(core.ErrCollectorFailed,
		fmt.Errorf("funding rate for %s: %w", normalized, lastErr))
}

// Providers builds providers by name, in order. Unknown names are an error.
func Providers(names ...string) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case "binance":
			out = append(out, binance.New())
		case "okx":
			out = append(out, okx.New())
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown market provider %q", name))
		}
	}
	return out, nil
}
