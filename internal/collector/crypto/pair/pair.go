// Package pair normalizes crypto trading pair symbols.
package pair

import (
	"fmt"
	"regexp"
	"strings"
)

// Quote currencies in detection order
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{2,20}$`)

// Normalize converts "BTC", "btc", "BTC-USDT", "BTC/USDT" or "btcusdt" to
// "BTCUSDT". A bare base gets defaultQuote appended.
func Normalize(input string, defaultQuote string) string {
	if input == "" {
		return ""
	}

	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")

	// keep an existing quote as long as a base remains
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}

	return s + strings.ToUpper(defaultQuote)
}

// Split extracts base and quote from a normalized symbol:
// "BTCUSDT" -> ("BTC", "USDT").
func Split(symbol string) (base, quote string) {
	s := strings.ToUpper(symbol)

	for _, q := range quoteCurrencies {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}

	if len(s) > 4 {
		return s[:len(s)-4], s[len(s)-4:]
	}

	return s, ""
}

// Display renders "BTCUSDT" as "BTC/USDT".
func Display(symbol string) string {
	base, quote := Split(symbol)
	if quote == "" {
		return base
	}
	return base + "/" + quote
}

// Validate checks symbol is a plausible pair in any accepted format.
func Validate(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 30 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}

	s := strings.ReplaceAll(symbol, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")

	if !validSymbol.MatchString(s) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}
