// Package report renders the per-run news sentiment document and writes it
// through an archive backend.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/storage/archive"
)

// TimestampLayout is the UTC timestamp format of each group entry.
const TimestampLayout = "2006-01-02 15:04:05"

const historyDir = "history"

// Article is one scored item in a group.
type Article struct {
	Term        string  `json:"term,omitempty"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Sentiment   float64 `json:"sentiment"`
}

// Group is the report entry for one aggregation group.
type Group struct {
	AverageSentiment float64   `json:"average_sentiment"`
	Articles         []Article `json:"articles"`
	Timestamp        string    `json:"timestamp"`
}

// Document maps group name to its entry.
type Document map[string]Group

// Build assembles a document from group summaries and the scored items of
// each group. Search terms are only kept for the macro group.
func Build(summaries []core.GroupSummary, scored map[string][]core.ScoredText) Document {
	doc := make(Document, len(summaries))
	for _, s := range summaries {
		items := scored[s.Group]
		articles := make([]Article, 0, len(items))
		for _, it := range items {
			a := Article{
				Source:      it.Source,
				Title:       it.Title,
				Description: it.Description,
				Sentiment:   it.Polarity,
			}
			if s.Group == core.MacroGroup {
				a.Term = it.Term
			}
			articles = append(articles, a)
		}
		doc[s.Group] = Group{
			AverageSentiment: s.AveragePolarity,
			Articles:         articles,
			Timestamp:        s.AsOf.UTC().Format(TimestampLayout),
		}
	}
	return doc
}

// Groups returns the document's group names, sorted.
func (d Document) Groups() []string {
	out := make([]string, 0, len(d))
	for g := range d {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Writer persists documents under a fixed key and optionally keeps a
// bounded history of earlier runs.
type Writer struct {
	storage archive.Storage
	key     string
	history int
	logger  *zap.Logger
}

// NewWriter creates a report writer. history <= 0 disables history copies.
func NewWriter(storage archive.Storage, key string, history int, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{storage: storage, key: key, history: history, logger: logger}
}

// Key returns the storage key of the latest report.
func (w *Writer) Key() string { return w.key }

// Write stores doc as the latest report. History copies are named by at.
func (w *Writer) Write(ctx context.Context, doc Document, at time.Time) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := w.storage.Write(ctx, w.key, data); err != nil {
		return err
	}
	w.logger.Debug("report written", zap.String("key", w.key), zap.Int("groups", len(doc)))

	if w.history <= 0 {
		return nil
	}
	if err := w.storage.Write(ctx, w.historyKey(at), data); err != nil {
		return err
	}
	return w.prune(ctx)
}

// Latest reads back the most recent report.
func (w *Writer) Latest(ctx context.Context) (Document, error) {
	data, err := w.storage.Read(ctx, w.key)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("decode report: %w", err))
	}
	return doc, nil
}

// History lists stored history keys, oldest first.
func (w *Writer) History(ctx context.Context) ([]string, error) {
	keys, err := w.storage.List(ctx, historyDir)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (w *Writer) historyKey(at time.Time) string {
	base := path.Base(w.key)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return path.Join(historyDir, fmt.Sprintf("%s-%s%s", stem, at.UTC().Format("20060102T150405Z"), ext))
}

func (w *Writer) prune(ctx context.Context) error {
	keys, err := w.History(ctx)
	if err != nil {
		return err
	}
	for len(keys) > w.history {
		if err := w.storage.Delete(ctx, keys[0]); err != nil {
			return err
		}
		w.logger.Debug("report history pruned", zap.String("key", keys[0]))
		keys = keys[1:]
	}
	return nil
}
