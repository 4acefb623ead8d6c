package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/aggregate"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/dedup"
	"github.com/newthinker/pulse/internal/sentiment"
)

const (
	sourcePrice = "price"
	sourceText  = "text"
)

// Run is one evaluation pass. Its ledger and aggregator are discarded with
// it. Methods are safe for concurrent use, though the scheduler normally
// calls them from one goroutine.
type Run struct {
	engine     *Engine
	ledger     *dedup.Ledger
	aggregator *aggregate.Aggregator

	mu        sync.Mutex
	events    []core.SignalEvent
	snapshots map[string]core.IndicatorSnapshot
	scored    map[string][]core.ScoredText
}

func newRun(e *Engine, seed []string) *Run {
	agg := aggregate.New()
	return &Run{
		engine:     e,
		ledger:     dedup.New(seed...),
		aggregator: agg,
		snapshots:  make(map[string]core.IndicatorSnapshot),
		scored:     make(map[string][]core.ScoredText),
	}
}

// EvaluateInstrument appends samples to the instrument's window, computes
// indicators at the newest sample and returns an event when a LONG or SHORT
// signal is admitted by the ledger. Samples not newer than the window's last
// one are rejected individually.
func (r *Run) EvaluateInstrument(symbol string, samples []core.Sample, fundingRate float64) (core.IndicatorSnapshot, *core.SignalEvent) {
	e := r.engine
	buf := e.buffers.Get(symbol)

	rejected := 0
	for _, s := range samples {
		if err := buf.Push(s); err != nil {
			rejected++
			reason := "invalid"
			if errors.Is(err, core.ErrOutOfOrderSample) {
				reason = "out_of_order"
			}
			e.observer.RecordSampleRejected(symbol, reason)
		}
	}
	if rejected > 0 {
		e.logger.Debug("samples rejected",
			zap.String("symbol", symbol),
			zap.Int("rejected", rejected),
			zap.Int("received", len(samples)),
		)
	}

	if last, ok := buf.Last(); ok {
		e.logger.Debug("window updated",
			zap.String("symbol", symbol),
			zap.Time("last_bar", last.Time),
			zap.Float64("last_close", last.Close),
			zap.Int("window", buf.Len()),
			zap.Int("capacity", buf.Capacity()),
		)
	}

	snap := e.calculator.Compute(symbol, buf.Snapshot(), fundingRate)

	r.mu.Lock()
	r.snapshots[symbol] = snap
	r.mu.Unlock()

	if err := snap.Err(); err != nil {
		e.logger.Debug("skipping classification", zap.Error(err))
		return snap, nil
	}

	kind := e.price.Classify(snap)
	if kind == core.KindNone {
		e.logger.Debug("no price signal",
			zap.String("symbol", symbol),
			zap.String("conditions", e.price.Diagnostics(snap)),
		)
		return snap, nil
	}

	if !r.ledger.Admit(dedup.PriceKey(symbol, kind, snap.Time)) {
		e.observer.RecordSignalSuppressed(string(kind))
		return snap, nil
	}

	event := core.SignalEvent{
		ID:       e.newID(),
		Subject:  symbol,
		Kind:     kind,
		Strength: e.price.Strength(snap),
		Evidence: e.price.Evidence(kind, snap),
		Time:     snap.Time,
		Group:    symbol,
		Source:   sourcePrice,
	}
	r.record(event)
	return snap, &event
}

// EvaluateText scores item, folds its polarity into the item's group and
// returns an event when a POSITIVE or NEGATIVE alert is admitted. A scoring
// failure is logged and treated as polarity 0.
func (r *Run) EvaluateText(ctx context.Context, item core.TextItem) (core.ScoredText, *core.SignalEvent) {
	e := r.engine

	polarity, err := e.scorer.Score(ctx, item.Text())
	if err != nil {
		e.logger.Warn("scoring failed",
			zap.String("scorer", e.scorer.Name()),
			zap.String("title", item.Title),
			zap.Error(err),
		)
		e.observer.RecordScoringFailure(e.scorer.Name())
		polarity = 0
	}
	polarity = sentiment.Clamp(polarity)

	scored := core.ScoredText{TextItem: item, Polarity: polarity}
	r.aggregator.Fold(item.Group, polarity)

	r.mu.Lock()
	r.scored[item.Group] = append(r.scored[item.Group], scored)
	r.mu.Unlock()

	kind := e.text.Classify(polarity)
	if kind == core.KindNone {
		return scored, nil
	}

	if !r.ledger.Admit(dedup.TextKey(item.Title)) {
		e.observer.RecordSignalSuppressed(string(kind))
		e.logger.Debug("duplicate alert suppressed", zap.String("title", item.Title))
		return scored, nil
	}

	event := core.SignalEvent{
		ID:       e.newID(),
		Subject:  item.Group,
		Kind:     kind,
		Strength: math.Abs(polarity),
		Evidence: e.text.Evidence(kind, scored),
		Time:     e.now().UTC(),
		Group:    item.Group,
		Source:   item.Source,
	}
	r.record(event)
	return scored, &event
}

// SummarizeGroup returns the pass's aggregate for group. Groups without
// any scored text summarize to zero.
func (r *Run) SummarizeGroup(group string) core.GroupSummary {
	s := r.aggregator.Summarize(group)
	s.AsOf = r.engine.now().UTC()
	return s
}

func (r *Run) record(event core.SignalEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	r.engine.observer.RecordSignal(event.Source, string(event.Kind))
	r.engine.logger.Info("signal admitted",
		zap.String("subject", event.Subject),
		zap.String("kind", string(event.Kind)),
		zap.Float64("strength", event.Strength),
	)
}

// Events returns admitted events in evaluation order.
func (r *Run) Events() []core.SignalEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.SignalEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Snapshot returns the last indicator snapshot computed for symbol.
func (r *Run) Snapshot(symbol string) (core.IndicatorSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[symbol]
	return s, ok
}

// Scored returns the scored items of group in evaluation order.
func (r *Run) Scored(group string) []core.ScoredText {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.ScoredText, len(r.scored[group]))
	copy(out, r.scored[group])
	return out
}

// Groups returns every group that received scored text, sorted.
func (r *Run) Groups() []string {
	return r.aggregator.Groups()
}

// Summaries summarizes each of groups plus any other group seen in the
// pass, sorted by group.
func (r *Run) Summaries(groups ...string) []core.GroupSummary {
	set := make(map[string]struct{})
	for _, g := range groups {
		set[g] = struct{}{}
	}
	for _, g := range r.aggregator.Groups() {
		set[g] = struct{}{}
	}

	names := make([]string, 0, len(set))
	for g := range set {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]core.GroupSummary, 0, len(names))
	for _, g := range names {
		out = append(out, r.SummarizeGroup(g))
	}
	return out
}

// Keys returns the ledger contents, seeds included, for persistence.
func (r *Run) Keys() []string {
	return r.ledger.Keys()
}
