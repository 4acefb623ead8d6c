package classifier

import (
	"fmt"
	"strings"

	"github.com/newthinker/pulse/internal/core"
)

const evidenceDescriptionLimit = 150

// Text classifies polarity scores as POSITIVE, NEGATIVE or NONE.
type Text struct {
	threshold float64
}

// NewText creates a text classifier from t.
func NewText(t Thresholds) *Text {
	return &Text{threshold: t.AlertThreshold}
}

// Classify compares polarity against the symmetric alert threshold.
func (c *Text) Classify(polarity float64) core.Kind {
	switch {
	case polarity >= c.threshold:
		return core.KindPositive
	case polarity <= -c.threshold:
		return core.KindNegative
	}
	return core.KindNone
}

// Evidence renders the alert line for a scored item.
func (c *Text) Evidence(kind core.Kind, st core.ScoredText) string {
	direction := "Positive"
	if kind == core.KindNegative {
		direction = "Negative"
	}

	label := st.Group
	if st.Group == core.MacroGroup && st.Term != "" {
		label = titleCase(st.Term)
	}

	desc := strings.TrimSpace(st.Description)
	if r := []rune(desc); len(r) > evidenceDescriptionLimit {
		desc = string(r[:evidenceDescriptionLimit]) + "..."
	}

	return fmt.Sprintf("%s (%s, %.2f): %s\n-> %s", label, direction, st.Polarity, st.Title, desc)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
