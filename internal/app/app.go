// Package app schedules evaluation runs: it fetches bars and news in
// parallel, hands the results to the engine one at a time, then reports,
// routes and persists what the run produced.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/collector"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/dedup"
	"github.com/newthinker/pulse/internal/engine"
	"github.com/newthinker/pulse/internal/notifier"
	"github.com/newthinker/pulse/internal/report"
	"github.com/newthinker/pulse/internal/router"
	"github.com/newthinker/pulse/internal/storage/signal"
)

// ErrCycleInProgress is returned by RunOnce while another run is executing.
var ErrCycleInProgress = errors.New("evaluation cycle already in progress")

// Instrument is one tracked symbol and the collector that serves it.
type Instrument struct {
	Symbol    string
	Collector string
}

// MarketSettings controls bar fetching.
type MarketSettings struct {
	Interval string
	Limit    int
	Timeout  time.Duration
}

// Recorder receives scheduler metrics. metrics.Registry satisfies it.
type Recorder interface {
	router.Recorder
	RecordFetchFailure(kind, source string)
	RecordEvaluationCycle(status string, seconds float64)
	SetGroupPolarity(group string, avg float64)
	SetTrackedSymbols(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSignalRouted(string, string)     {}
func (nopRecorder) RecordFetchFailure(string, string)     {}
func (nopRecorder) RecordEvaluationCycle(string, float64) {}
func (nopRecorder) SetGroupPolarity(string, float64)      {}
func (nopRecorder) SetTrackedSymbols(int)                 {}

// Result describes one completed run.
type Result struct {
	StartedAt     time.Time
	Duration      time.Duration
	Events        []core.SignalEvent
	Routed        []core.SignalEvent
	Summaries     []core.GroupSummary
	FailedFetches int
}

// App is the main application orchestrator
type App struct {
	logger      *zap.Logger
	engine      *engine.Engine
	collectors  *collector.Registry
	notifiers   *notifier.Registry
	router      *router.Router
	signalStore signal.Store
	ledger      dedup.Store
	reports     *report.Writer
	recorder    Recorder
	now         func() time.Time

	instruments []Instrument
	sources     []collector.TextSource
	groups      []string
	market      MarketSettings
	newsTimeout time.Duration
	workers     int
	interval    time.Duration

	cycling atomic.Bool
	cycles  sync.WaitGroup

	mu            sync.RWMutex
	running       bool
	cancel        context.CancelFunc
	lastSummaries []core.GroupSummary
	lastRunAt     time.Time
	lastResult    *Result
}

// New creates a new App around a long-lived engine. Events that pass the
// router are kept in store.
func New(eng *engine.Engine, store signal.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = signal.NewMemoryStore(500)
	}

	notifiers := notifier.NewRegistry()
	r := router.New(router.DefaultConfig(), notifiers, logger)
	r.SetSignalStore(store)

	return &App{
		logger:      logger,
		engine:      eng,
		collectors:  collector.NewRegistry(),
		notifiers:   notifiers,
		router:      r,
		signalStore: store,
		ledger:      dedup.NopStore{},
		recorder:    nopRecorder{},
		now:         time.Now,
		market:      MarketSettings{Interval: "1m", Limit: 100, Timeout: 10 * time.Second},
		newsTimeout: 15 * time.Second,
		workers:     4,
		interval:    time.Minute,
	}
}

// RegisterCollector adds a market collector to the app
func (a *App) RegisterCollector(c collector.MarketCollector) {
	a.collectors.Register(c)
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetRouterConfig replaces the routing filters.
func (a *App) SetRouterConfig(cfg router.Config) {
	r := router.New(cfg, a.notifiers, a.logger)
	r.SetSignalStore(a.signalStore)
	r.SetRecorder(a.recorder)
	a.router = r
}

// SetInstruments sets the symbols to evaluate
func (a *App) SetInstruments(instruments []Instrument) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instruments = append([]Instrument(nil), instruments...)
}

// SetSources sets the news feeds to score
func (a *App) SetSources(sources []collector.TextSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources = append([]collector.TextSource(nil), sources...)
}

// SetGroups sets the groups summarized every run, whether or not they saw
// any items.
func (a *App) SetGroups(groups []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.groups = append([]string(nil), groups...)
}

// SetMarket sets the bar interval, limit and per-instrument timeout.
func (a *App) SetMarket(m MarketSettings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.market = m
}

// SetNewsTimeout sets the per-feed fetch timeout.
func (a *App) SetNewsTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.newsTimeout = d
}

// SetWorkers bounds the number of concurrent fetches.
func (a *App) SetWorkers(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 1 {
		n = 1
	}
	a.workers = n
}

// SetInterval sets the evaluation interval
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// SetLedgerStore sets the cross-run dedup memory.
func (a *App) SetLedgerStore(s dedup.Store) {
	if s == nil {
		s = dedup.NopStore{}
	}
	a.ledger = s
}

// SetReportWriter enables the per-run report.
func (a *App) SetReportWriter(w *report.Writer) {
	a.reports = w
}

// SetRecorder sets the metrics sink.
func (a *App) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = nopRecorder{}
	}
	a.recorder = rec
	a.router.SetRecorder(rec)
}

// Start begins the evaluation loop. It runs once immediately, then on every
// tick; a tick that arrives while a run is still executing is skipped.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.interval
	a.mu.Unlock()

	a.logger.Info("pulse starting",
		zap.Int("instruments", len(a.instruments)),
		zap.Int("feeds", len(a.sources)),
		zap.Duration("interval", interval),
	)

	a.trigger(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("pulse shutting down")
			a.cycles.Wait()
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.trigger(ctx)
		}
	}
}

// Stop stops the evaluation loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) trigger(ctx context.Context) {
	a.cycles.Add(1)
	go func() {
		defer a.cycles.Done()
		if _, err := a.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			a.logger.Error("evaluation cycle failed", zap.Error(err))
		}
	}()
}

// RunOnce performs a single evaluation run.
func (a *App) RunOnce(ctx context.Context) (*Result, error) {
	if !a.cycling.CompareAndSwap(false, true) {
		a.logger.Warn("previous evaluation still running, skipping")
		a.recorder.RecordEvaluationCycle("skipped", 0)
		return nil, ErrCycleInProgress
	}
	defer a.cycling.Store(false)

	start := a.now()
	res, err := a.runCycle(ctx)
	elapsed := a.now().Sub(start)
	if err != nil {
		a.recorder.RecordEvaluationCycle("error", elapsed.Seconds())
		return nil, err
	}
	res.StartedAt = start
	res.Duration = elapsed
	a.recorder.RecordEvaluationCycle("ok", elapsed.Seconds())

	a.mu.Lock()
	a.lastSummaries = res.Summaries
	a.lastRunAt = start
	a.lastResult = res
	a.mu.Unlock()

	a.logger.Info("evaluation cycle complete",
		zap.Int("events", len(res.Events)),
		zap.Int("routed", len(res.Routed)),
		zap.Int("groups", len(res.Summaries)),
		zap.Int("failed_fetches", res.FailedFetches),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

func (a *App) runCycle(ctx context.Context) (*Result, error) {
	a.mu.RLock()
	instruments := append([]Instrument(nil), a.instruments...)
	sources := append([]collector.TextSource(nil), a.sources...)
	groups := append([]string(nil), a.groups...)
	a.mu.RUnlock()

	seed, err := a.ledger.Load(ctx)
	if err != nil {
		a.logger.Warn("failed to load dedup ledger, starting empty", zap.Error(err))
		seed = nil
	}
	run := a.engine.NewRun(seed...)
	res := &Result{}

	bars, texts := a.fetchAll(ctx, instruments, sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, inst := range instruments {
		b := bars[i]
		if b.err != nil {
			res.FailedFetches++
			a.recorder.RecordFetchFailure("market", inst.Symbol)
			a.logger.Warn("instrument fetch failed", zap.String("symbol", inst.Symbol), zap.Error(b.err))
			continue
		}
		snap, ev := run.EvaluateInstrument(inst.Symbol, b.samples, b.rate)
		a.logger.Debug("instrument evaluated",
			zap.String("symbol", inst.Symbol),
			zap.Int("samples", snap.Samples),
			zap.Bool("complete", snap.Complete()),
			zap.Bool("signal", ev != nil),
		)
	}

	for i, src := range sources {
		t := texts[i]
		if t.err != nil {
			res.FailedFetches++
			a.recorder.RecordFetchFailure("news", src.Name())
			a.logger.Warn("feed fetch failed", zap.String("feed", src.Name()), zap.Error(t.err))
			continue
		}
		for _, item := range t.items {
			run.EvaluateText(ctx, item)
		}
	}

	res.Events = run.Events()
	res.Summaries = run.Summaries(groups...)
	for _, s := range res.Summaries {
		a.recorder.SetGroupPolarity(s.Group, s.AveragePolarity)
	}
	a.recorder.SetTrackedSymbols(len(a.engine.Symbols()))

	if a.reports != nil {
		scored := make(map[string][]core.ScoredText, len(res.Summaries))
		for _, s := range res.Summaries {
			scored[s.Group] = run.Scored(s.Group)
		}
		if err := a.reports.Write(ctx, report.Build(res.Summaries, scored), a.now()); err != nil {
			a.logger.Error("failed to write report", zap.String("key", a.reports.Key()), zap.Error(err))
		}
	}

	res.Routed = a.router.Dispatch(ctx, res.Events)

	if err := a.ledger.Save(ctx, run.Keys()); err != nil {
		a.logger.Error("failed to persist dedup ledger", zap.Error(err))
	}
	return res, nil
}

type barsResult struct {
	samples []core.Sample
	rate    float64
	err     error
}

type textResult struct {
	items []core.TextItem
	err   error
}

// fetchAll runs every instrument and feed fetch on a bounded worker set.
// Results are indexed like their inputs so hand-off order is stable.
func (a *App) fetchAll(ctx context.Context, instruments []Instrument, sources []collector.TextSource) ([]barsResult, []textResult) {
	a.mu.RLock()
	market, newsTimeout, workers := a.market, a.newsTimeout, a.workers
	a.mu.RUnlock()

	bars := make([]barsResult, len(instruments))
	texts := make([]textResult, len(sources))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			fn()
		}()
	}

	for i, inst := range instruments {
		spawn(func() {
			bars[i] = a.fetchInstrument(ctx, inst, market)
		})
	}
	for i, src := range sources {
		spawn(func() {
			fctx, cancel := withTimeout(ctx, newsTimeout)
			defer cancel()
			items, err := src.Fetch(fctx)
			texts[i] = textResult{items: items, err: err}
		})
	}
	wg.Wait()
	return bars, texts
}

func (a *App) fetchInstrument(ctx context.Context, inst Instrument, m MarketSettings) barsResult {
	c, ok := a.collectors.Get(inst.Collector)
	if !ok {
		return barsResult{err: core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("no collector %q for %s", inst.Collector, inst.Symbol))}
	}

	fctx, cancel := withTimeout(ctx, m.Timeout)
	defer cancel()

	samples, err := c.FetchBars(fctx, inst.Symbol, m.Interval, m.Limit)
	if err != nil {
		return barsResult{err: err}
	}

	rate, err := c.FetchFundingRate(fctx, inst.Symbol)
	if err != nil {
		// Indicators still update; a zero rate classifies as neutral.
		a.logger.Warn("funding rate unavailable", zap.String("symbol", inst.Symbol), zap.Error(err))
		a.recorder.RecordFetchFailure("funding", inst.Symbol)
		rate = 0
	}
	return barsResult{samples: samples, rate: rate}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// LatestSummaries returns the group summaries of the last completed run.
func (a *App) LatestSummaries() ([]core.GroupSummary, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := append([]core.GroupSummary(nil), a.lastSummaries...)
	return out, a.lastRunAt
}

// LastResult returns the last completed run, or nil.
func (a *App) LastResult() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult
}

// SignalStore returns the routed event history.
func (a *App) SignalStore() signal.Store {
	return a.signalStore
}

// Instruments returns the tracked symbols.
func (a *App) Instruments() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.instruments))
	for i, inst := range a.instruments {
		out[i] = inst.Symbol
	}
	sort.Strings(out)
	return out
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":     a.running,
		"instruments": len(a.instruments),
		"feeds":       len(a.sources),
		"collectors":  a.collectors.Names(),
		"notifiers":   a.notifiers.Len(),
		"last_run_at": a.lastRunAt,
		"router":      a.router.GetStats(),
	}
}
