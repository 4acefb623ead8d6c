package core

import (
	"fmt"
	"math"
	"time"
)

// MacroGroup is the aggregation bucket for news that is not tied to an instrument.
const MacroGroup = "MACRO"

// Sample is one bar of an instrument's price series.
type Sample struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FundingBias classifies a perpetual funding rate.
type FundingBias string

const (
	FundingNeutral FundingBias = "neutral"
	FundingBullish FundingBias = "bullish"
	FundingBearish FundingBias = "bearish"
)

// IndicatorSnapshot holds indicator values at the newest sample of a window.
// RSI is NaN unless RSIReady is set.
type IndicatorSnapshot struct {
	Symbol      string      `json:"symbol"`
	Time        time.Time   `json:"time"`
	Close       float64     `json:"close"`
	EMAFast     float64     `json:"ema_fast"`
	EMASlow     float64     `json:"ema_slow"`
	RSI         float64     `json:"-"`
	FundingRate float64     `json:"funding_rate"`
	FundingBias FundingBias `json:"funding_bias"`
	Samples     int         `json:"samples"`
	EMAReady    bool        `json:"ema_ready"`
	RSIReady    bool        `json:"rsi_ready"`
}

// Complete reports whether every indicator had enough history.
func (s IndicatorSnapshot) Complete() bool {
	return s.EMAReady && s.RSIReady && !math.IsNaN(s.RSI)
}

// Err returns ErrInsufficientData naming the indicators that lacked history,
// or nil when the snapshot is complete.
func (s IndicatorSnapshot) Err() error {
	if s.Complete() {
		return nil
	}
	return WrapError(ErrInsufficientData, fmt.Errorf("%s: %d samples (ema ready %t, rsi ready %t)",
		s.Symbol, s.Samples, s.EMAReady, s.RSIReady && !math.IsNaN(s.RSI)))
}

// Kind is a discrete signal classification.
type Kind string

const (
	KindNone     Kind = "NONE"
	KindLong     Kind = "LONG"
	KindShort    Kind = "SHORT"
	KindPositive Kind = "POSITIVE"
	KindNegative Kind = "NEGATIVE"
)

// IsPrice reports whether the kind comes from the price path.
func (k Kind) IsPrice() bool {
	return k == KindLong || k == KindShort
}

// IsText reports whether the kind comes from the text path.
func (k Kind) IsText() bool {
	return k == KindPositive || k == KindNegative
}

// TextItem is one news/article unit.
type TextItem struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Group       string    `json:"group"`
	Term        string    `json:"term,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Text returns the scored body of the item.
func (t TextItem) Text() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + " " + t.Description
}

// ScoredText is a TextItem with its polarity in [-1, 1].
type ScoredText struct {
	TextItem
	Polarity float64 `json:"sentiment"`
}

// SignalEvent is produced by the engine and handed to the notification layer.
type SignalEvent struct {
	ID       string    `json:"id"`
	Subject  string    `json:"subject"`
	Kind     Kind      `json:"kind"`
	Strength float64   `json:"strength"`
	Evidence string    `json:"evidence"`
	Time     time.Time `json:"time"`
	Group    string    `json:"group,omitempty"`
	Source   string    `json:"source,omitempty"`
}

// GroupSummary is the per-group aggregate of one evaluation pass.
type GroupSummary struct {
	Group           string    `json:"group"`
	SampleCount     int       `json:"sample_count"`
	AveragePolarity float64   `json:"average_sentiment"`
	AsOf            time.Time `json:"as_of"`
}
