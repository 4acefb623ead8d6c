// Package router filters engine events and fans them out to notifiers.
package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/notifier"
	"github.com/newthinker/pulse/internal/storage/signal"
)

// Config holds router configuration
type Config struct {
	MinStrength float64
	// Kinds is the allow-list of event kinds; empty allows every kind.
	Kinds []core.Kind
	// Batch sends one digest per run. When false every event is sent on
	// its own.
	Batch bool
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		Kinds: []core.Kind{core.KindLong, core.KindShort, core.KindPositive, core.KindNegative},
		Batch: true,
	}
}

// Recorder receives per-notifier delivery outcomes.
type Recorder interface {
	RecordSignalRouted(notifier, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSignalRouted(string, string) {}

// Router routes events to notifiers with filtering. Delivery failures are
// logged and counted; they never reach the caller's evaluation path.
type Router struct {
	cfg         Config
	registry    *notifier.Registry
	logger      *zap.Logger
	recorder    Recorder
	signalStore signal.Store
}

// New creates a new event router. registry may be nil.
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		recorder: nopRecorder{},
	}
}

// SetSignalStore sets the event history store
func (r *Router) SetSignalStore(store signal.Store) {
	r.signalStore = store
}

// SetRecorder sets the delivery metrics sink
func (r *Router) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = nopRecorder{}
	}
	r.recorder = rec
}

// Dispatch routes a run's events in the configured mode and returns those
// that passed the filters.
func (r *Router) Dispatch(ctx context.Context, events []core.SignalEvent) []core.SignalEvent {
	if r.cfg.Batch {
		return r.RouteBatch(ctx, events)
	}
	var routed []core.SignalEvent
	for _, e := range events {
		if r.Route(ctx, e) {
			routed = append(routed, e)
		}
	}
	return routed
}

// Route processes a single event through filters and sends it to notifiers
func (r *Router) Route(ctx context.Context, event core.SignalEvent) bool {
	if !r.passesFilters(event) {
		r.logger.Debug("event filtered out",
			zap.String("subject", event.Subject),
			zap.String("kind", string(event.Kind)),
			zap.Float64("strength", event.Strength),
		)
		return false
	}
	r.persist(ctx, event)

	if r.registry == nil {
		return true
	}
	r.report(r.registry.NotifyAll(ctx, event), "notifier failed")
	return true
}

// RouteBatch filters events, records the survivors and sends them to every
// notifier as one digest. It returns the events that passed the filters.
func (r *Router) RouteBatch(ctx context.Context, events []core.SignalEvent) []core.SignalEvent {
	var filtered []core.SignalEvent
	for _, e := range events {
		if r.passesFilters(e) {
			filtered = append(filtered, e)
			r.persist(ctx, e)
		}
	}

	if len(filtered) == 0 || r.registry == nil {
		return filtered
	}

	errs := r.registry.NotifyAllBatch(ctx, filtered)
	r.report(errs, "notifier failed on batch")

	r.logger.Info("batch routed",
		zap.Int("total", len(events)),
		zap.Int("filtered", len(filtered)),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errs)),
	)
	return filtered
}

func (r *Router) persist(ctx context.Context, event core.SignalEvent) {
	if r.signalStore == nil {
		return
	}
	if err := r.signalStore.Save(ctx, event); err != nil {
		r.logger.Error("failed to persist event", zap.String("id", event.ID), zap.Error(err))
	}
}

func (r *Router) report(errs map[string]error, msg string) {
	for _, n := range r.registry.GetAll() {
		name := n.Name()
		if err, failed := errs[name]; failed {
			r.logger.Error(msg, zap.String("notifier", name), zap.Error(err))
			r.recorder.RecordSignalRouted(name, "error")
			continue
		}
		r.recorder.RecordSignalRouted(name, "success")
	}
}

// passesFilters checks if an event passes all configured filters
func (r *Router) passesFilters(event core.SignalEvent) bool {
	if event.Kind == core.KindNone {
		return false
	}
	if event.Strength < r.cfg.MinStrength {
		return false
	}
	if len(r.cfg.Kinds) == 0 {
		return true
	}
	for _, k := range r.cfg.Kinds {
		if event.Kind == k {
			return true
		}
	}
	return false
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	notifiers := 0
	if r.registry != nil {
		notifiers = r.registry.Len()
	}
	return map[string]any{
		"min_strength": r.cfg.MinStrength,
		"kinds":        r.cfg.Kinds,
		"batch":        r.cfg.Batch,
		"notifiers":    notifiers,
	}
}
