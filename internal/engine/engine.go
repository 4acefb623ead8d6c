// Package engine evaluates instruments and text items into deduplicated
// signal events.
//
// An Engine is long-lived and owns one series buffer per instrument. Each
// evaluation pass gets its own Run, which owns the dedup ledger and the
// aggregator for that pass.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/classifier"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/indicator"
	"github.com/newthinker/pulse/internal/sentiment"
	"github.com/newthinker/pulse/internal/series"
)

// Engine holds cross-run state: the per-instrument sample windows.
type Engine struct {
	cfg        Config
	buffers    *series.Set
	calculator *indicator.Calculator
	price      *classifier.Price
	text       *classifier.Text
	scorer     sentiment.Scorer

	logger   *zap.Logger
	observer Observer
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock overrides the time source used for text events and summaries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New validates cfg and builds an engine. A nil scorer falls back to the
// VADER lexicon scorer.
func New(cfg Config, scorer sentiment.Scorer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calc, err := indicator.NewCalculator(cfg.Indicator)
	if err != nil {
		return nil, err
	}
	buffers, err := series.NewSet(cfg.SeriesCapacity)
	if err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = sentiment.NewLexicon()
	}

	e := &Engine{
		cfg:        cfg,
		buffers:    buffers,
		calculator: calc,
		price:      classifier.NewPrice(cfg.Thresholds),
		text:       classifier.NewText(cfg.Thresholds),
		scorer:     scorer,
		logger:     zap.NewNop(),
		observer:   nopObserver{},
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Symbols lists instruments that have a sample window.
func (e *Engine) Symbols() []string {
	return e.buffers.Symbols()
}

// Window returns a copy of the stored samples for symbol.
func (e *Engine) Window(symbol string) []core.Sample {
	return e.buffers.Get(symbol).Snapshot()
}

// NewRun starts an evaluation pass. Seed keys count as already admitted.
func (e *Engine) NewRun(seed ...string) *Run {
	return newRun(e, seed)
}
