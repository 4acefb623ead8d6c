package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/storage/archive"
)

var asOf = time.Date(2025, 4, 2, 13, 5, 9, 0, time.UTC)

func fixture() ([]core.GroupSummary, map[string][]core.ScoredText) {
	summaries := []core.GroupSummary{
		{Group: "BITCOIN", SampleCount: 2, AveragePolarity: 0.25, AsOf: asOf},
		{Group: core.MacroGroup, SampleCount: 1, AveragePolarity: -0.5, AsOf: asOf},
		{Group: "SOLANA", SampleCount: 0, AveragePolarity: 0, AsOf: asOf},
	}
	scored := map[string][]core.ScoredText{
		"BITCOIN": {
			{TextItem: core.TextItem{Source: "Google News", Title: "BTC rallies", Description: "up", Group: "BITCOIN", Term: "crypto"}, Polarity: 0.5},
			{TextItem: core.TextItem{Source: "Cointelegraph", Title: "BTC flat", Group: "BITCOIN"}, Polarity: 0},
		},
		core.MacroGroup: {
			{TextItem: core.TextItem{Source: "Google News", Title: "Recession fears", Group: core.MacroGroup, Term: "recession"}, Polarity: -0.5},
		},
	}
	return summaries, scored
}

func TestBuild(t *testing.T) {
	doc := Build(fixture())

	assert.Equal(t, []string{"BITCOIN", "MACRO", "SOLANA"}, doc.Groups())

	btc := doc["BITCOIN"]
	assert.Equal(t, 0.25, btc.AverageSentiment)
	assert.Equal(t, "2025-04-02 13:05:09", btc.Timestamp)
	require.Len(t, btc.Articles, 2)
	assert.Empty(t, btc.Articles[0].Term, "term is only reported for macro")
	assert.Equal(t, 0.5, btc.Articles[0].Sentiment)

	macro := doc[core.MacroGroup]
	require.Len(t, macro.Articles, 1)
	assert.Equal(t, "recession", macro.Articles[0].Term)

	sol := doc["SOLANA"]
	assert.NotNil(t, sol.Articles)
	assert.Empty(t, sol.Articles)
}

func TestBuild_JSONShape(t *testing.T) {
	data, err := json.Marshal(Build(fixture()))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw["BITCOIN"], "average_sentiment")
	assert.Contains(t, raw["BITCOIN"], "articles")
	assert.Contains(t, raw["BITCOIN"], "timestamp")
	assert.Equal(t, "[]", mustJSON(t, raw["SOLANA"]["articles"]))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestWriter_WriteAndLatest(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(fs, "news_sentiment.json", 0, nil)
	ctx := context.Background()

	_, err = w.Latest(ctx)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	doc := Build(fixture())
	require.NoError(t, w.Write(ctx, doc, asOf))

	got, err := w.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	hist, err := w.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestWriter_HistoryPruned(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	w := NewWriter(fs, "news_sentiment.json", 2, nil)
	ctx := context.Background()

	doc := Build(fixture())
	for i := 0; i < 4; i++ {
		require.NoError(t, w.Write(ctx, doc, asOf.Add(time.Duration(i)*time.Minute)))
	}

	hist, err := w.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"history/news_sentiment-20250402T130709Z.json",
		"history/news_sentiment-20250402T130809Z.json",
	}, hist)
}
