package dedup

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/pulse/internal/core"
)

// TextKey normalizes a title so the same headline from different feeds maps
// to one key.
func TextKey(title string) string {
	return "text|" + strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// PriceKey identifies a price signal by instrument, kind and bar time.
func PriceKey(symbol string, kind core.Kind, barTime time.Time) string {
	return fmt.Sprintf("price|%s|%s|%d", strings.ToUpper(symbol), kind, barTime.UnixMilli())
}
