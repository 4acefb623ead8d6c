// Package binance reads USD-M perpetual futures data from Binance.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

const (
	baseURL = "https://fapi.binance.com"
)

// Binance implements crypto.Provider against the USD-M futures API.
type Binance struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// New creates a Binance provider.
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchBars fetches klines and drops the bar that is still open, so a
// repeated poll never re-reports a bar whose close is still moving.
func (b *Binance) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]core.Sample, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", toInterval(interval))
	q.Set("limit", strconv.Itoa(limit))

	var klines [][]any
	if err := b.get(ctx, "/fapi/v1/klines", q, &klines); err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}

	now := b.now()
	data := make([]core.Sample, 0, len(klines))
	for _, k := range klines {
		if len(k) < 7 {
			continue
		}

		openTime, _ := k[0].(float64)
		closeTime, _ := k[6].(float64)
		if time.UnixMilli(int64(closeTime)).After(now) {
			continue
		}

		data = append(data, core.Sample{
			Time:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   parseField(k[1]),
			High:   parseField(k[2]),
			Low:    parseField(k[3]),
			Close:  parseField(k[4]),
			Volume: parseField(k[5]),
		})
	}

	return data, nil
}

// FetchFundingRate reads lastFundingRate from the premium index.
func (b *Binance) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var result premiumIndex
	if err := b.get(ctx, "/fapi/v1/premiumIndex", q, &result); err != nil {
		return 0, fmt.Errorf("fetching premium index: %w", err)
	}

	rate, err := strconv.ParseFloat(result.LastFundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing funding rate %q: %w", result.LastFundingRate, err)
	}
	return rate, nil
}

func (b *Binance) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func parseField(v any) float64 {
	s, _ := v.(string)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func toInterval(interval string) string {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m":
		return interval
	case "1h", "2h", "4h":
		return interval
	case "1d":
		return "1d"
	default:
		return "1m"
	}
}

type premiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}
