package notifier

import (
	"fmt"
	"strings"

	"github.com/newthinker/pulse/internal/core"
)

// DigestHeader opens a combined alert message.
const DigestHeader = "🚨 Important signals found:"

// Emoji returns the marker used in front of an event line.
func Emoji(e core.SignalEvent) string {
	switch e.Kind {
	case core.KindLong:
		return "📈"
	case core.KindShort:
		return "📉"
	}
	if e.Group == core.MacroGroup {
		return "🌍"
	}
	return "📰"
}

// FormatEvent renders one event as plain text.
func FormatEvent(e core.SignalEvent) string {
	return fmt.Sprintf("%s %s", Emoji(e), e.Evidence)
}

// FormatDigest joins events into one plain-text message.
func FormatDigest(events []core.SignalEvent) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = FormatEvent(e)
	}
	return DigestHeader + "\n\n" + strings.Join(parts, "\n\n")
}
