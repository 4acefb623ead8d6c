package sentiment

import (
	"context"
	"strings"

	"github.com/jonreiter/govader"
)

// Lexicon scores text with the VADER rule set: word valences summed with
// negation, booster and punctuation adjustments, then normalized into
// [-1, 1]. Opposite-signed sentences cancel toward 0.
type Lexicon struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewLexicon returns a scorer over the VADER lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (l *Lexicon) Name() string { return "lexicon" }

// Score never fails; the error is always nil.
func (l *Lexicon) Score(_ context.Context, text string) (float64, error) {
	return l.Polarity(text), nil
}

// Polarity returns the VADER compound score of text, or 0 for blank text.
func (l *Lexicon) Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return Clamp(l.analyzer.PolarityScores(text).Compound)
}
