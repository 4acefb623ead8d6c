// Package okx reads perpetual swap data from OKX.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/pulse/internal/collector/crypto/pair"
	"github.com/newthinker/pulse/internal/core"
)

const (
	baseURL = "https://www.okx.com"
)

// OKX implements crypto.Provider against the v5 public API.
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates an OKX provider.
func New() *OKX {
	return &OKX{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX provider with custom base URL (for testing)
func NewWithBaseURL(url string) *OKX {
	o := New()
	o.baseURL = url
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// toInstID converts a normalized symbol to the swap instrument:
// BTCUSDT -> BTC-USDT-SWAP
func toInstID(symbol string) string {
	base, quote := pair.Split(symbol)
	return base + "-" + quote + "-SWAP"
}

// FetchBars fetches candles for the swap. Unconfirmed candles are dropped.
func (o *OKX) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]core.Sample, error) {
	q := url.Values{}
	q.Set("instId", toInstID(symbol))
	q.Set("bar", toInterval(interval))
	q.Set("limit", strconv.Itoa(limit))

	var result okxCandleResponse
	if err := o.get(ctx, "/api/v5/market/candles", q, &result); err != nil {
		return nil, fmt.Errorf("fetching candles: %w", err)
	}
	if result.Code != "0" {
		return nil, fmt.Errorf("okx error: %s", result.Msg)
	}

	data := make([]core.Sample, 0, len(result.Data))
	// newest first on the wire
	for i := len(result.Data) - 1; i >= 0; i-- {
		candle := result.Data[i]
		if len(candle) < 6 {
			continue
		}
		if len(candle) >= 9 && candle[8] == "0" {
			continue
		}

		ts, _ := strconv.ParseInt(candle[0], 10, 64)
		openPrice, _ := strconv.ParseFloat(candle[1], 64)
		high, _ := strconv.ParseFloat(candle[2], 64)
		low, _ := strconv.ParseFloat(candle[3], 64)
		closePrice, _ := strconv.ParseFloat(candle[4], 64)
		volume, _ := strconv.ParseFloat(candle[5], 64)

		data = append(data, core.Sample{
			Time:   time.UnixMilli(ts).UTC(),
			Open:   openPrice,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return data, nil
}

// FetchFundingRate reads the current funding rate of the swap.
func (o *OKX) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("instId", toInstID(symbol))

	var result okxFundingResponse
	if err := o.get(ctx, "/api/v5/public/funding-rate", q, &result); err != nil {
		return 0, fmt.Errorf("fetching funding rate: %w", err)
	}
	if result.Code != "0" || len(result.Data) == 0 {
		return 0, fmt.Errorf("okx error: %s", result.Msg)
	}

	rate, err := strconv.ParseFloat(result.Data[0].FundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing funding rate %q: %w", result.Data[0].FundingRate, err)
	}
	return rate, nil
}

func (o *OKX) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
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

func toInterval(interval string) string {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m":
		return interval
	case "1h":
		return "1H"
	case "2h":
		return "2H"
	case "4h":
		return "4H"
	case "1d":
		return "1D"
	default:
		return "1m"
	}
}

type okxCandleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

type okxFundingResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID          string `json:"instId"`
		FundingRate     string `json:"fundingRate"`
		NextFundingTime string `json:"nextFundingTime"`
	} `json:"data"`
}
