package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/newthinker/pulse/internal/api"
	"github.com/newthinker/pulse/internal/app"
	"github.com/newthinker/pulse/internal/classifier"
	"github.com/newthinker/pulse/internal/collector"
	"github.com/newthinker/pulse/internal/collector/crypto"
	"github.com/newthinker/pulse/internal/collector/crypto/pair"
	"github.com/newthinker/pulse/internal/collector/news"
	"github.com/newthinker/pulse/internal/config"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/dedup"
	"github.com/newthinker/pulse/internal/engine"
	"github.com/newthinker/pulse/internal/indicator"
	"github.com/newthinker/pulse/internal/llm/factory"
	"github.com/newthinker/pulse/internal/logger"
	"github.com/newthinker/pulse/internal/metrics"
	"github.com/newthinker/pulse/internal/notifier"
	"github.com/newthinker/pulse/internal/notifier/email"
	"github.com/newthinker/pulse/internal/notifier/kafka"
	"github.com/newthinker/pulse/internal/notifier/telegram"
	"github.com/newthinker/pulse/internal/notifier/webhook"
	"github.com/newthinker/pulse/internal/report"
	"github.com/newthinker/pulse/internal/router"
	"github.com/newthinker/pulse/internal/sentiment"
	"github.com/newthinker/pulse/internal/storage/archive"
	"github.com/newthinker/pulse/internal/storage/ledger"
	"github.com/newthinker/pulse/internal/storage/signal"
)

// runtime is the fully wired process: the evaluation loop plus everything
// it reads from and writes to.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	app     *app.App
	metrics *metrics.Registry
	reports *report.Writer
	server  *api.Server

	closers []io.Closer
}

// loadConfig reads cfgFile, or falls back to defaults when none was given.
func loadConfig(path string, log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		if log != nil {
			log.Warn("no config file specified, using defaults")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logger.NewWithLevel(level, debug || cfg.Log.Development)
}

// build wires every component named in cfg. withServer controls whether the
// HTTP surface is constructed; the one-shot command never serves.
func build(cfg *config.Config, log *zap.Logger, withServer bool) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithLogger(log))
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.NewRegistry()
		engineOpts = append(engineOpts, engine.WithObserver(rt.metrics))
	}

	scorer, err := buildScorer(cfg)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engineConfig(cfg.Engine), scorer, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	log.Info("sentiment scorer selected", zap.String("scorer", scorer.Name()))

	a := app.New(eng, signal.NewMemoryStore(cfg.Router.HistorySize), log)
	rt.app = a
	if rt.metrics != nil {
		a.SetRecorder(rt.metrics)
	}
	a.SetInterval(cfg.Interval)
	a.SetWorkers(cfg.Workers)
	a.SetRouterConfig(routerConfig(cfg.Router))

	if err := wireMarket(a, cfg.Market, log); err != nil {
		return nil, err
	}
	wireNews(a, cfg.News)

	store, err := buildLedgerStore(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, store)
	a.SetLedgerStore(store)

	if cfg.Report.Enabled {
		storage, err := buildArchive(cfg.Report)
		if err != nil {
			return nil, err
		}
		rt.reports = report.NewWriter(storage, cfg.Report.Key, cfg.Report.History, log)
		a.SetReportWriter(rt.reports)
	}

	notifiers, err := buildNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, err
	}
	for _, n := range notifiers {
		if c, ok := n.(io.Closer); ok {
			rt.closers = append(rt.closers, c)
		}
		if err := a.RegisterNotifier(n); err != nil {
			return nil, err
		}
		log.Info("notifier enabled", zap.String("notifier", n.Name()))
	}

	if withServer && cfg.Server.Enabled {
		deps := api.Dependencies{
			SignalStore: a.SignalStore(),
			Summaries:   a,
			Metrics:     rt.metrics,
		}
		if rt.reports != nil {
			deps.Reports = rt.reports
		}
		rt.server, err = api.NewServer(api.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			MetricsPath: cfg.Metrics.Path,
		}, deps, log)
		if err != nil {
			return nil, fmt.Errorf("creating server: %w", err)
		}
	}

	return rt, nil
}

// Close releases stores and notifier connections.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func engineConfig(c config.EngineConfig) engine.Config {
	return engine.Config{
		Indicator: indicator.Config{
			FastPeriod:       c.EMAFastPeriod,
			SlowPeriod:       c.EMASlowPeriod,
			RSIPeriod:        c.RSIPeriod,
			FundingThreshold: c.FundingThreshold,
		},
		Thresholds: classifier.Thresholds{
			RSIOversold:    c.RSIOversold,
			RSIOverbought:  c.RSIOverbought,
			AlertThreshold: c.AlertThreshold,
		},
		SeriesCapacity: c.SeriesCapacity,
	}
}

func routerConfig(c config.RouterConfig) router.Config {
	rc := router.DefaultConfig()
	rc.MinStrength = c.MinStrength
	rc.Batch = c.Batch
	if len(c.Kinds) > 0 {
		rc.Kinds = make([]core.Kind, 0, len(c.Kinds))
		for _, k := range c.Kinds {
			rc.Kinds = append(rc.Kinds, core.Kind(k))
		}
	}
	return rc
}

func buildScorer(cfg *config.Config) (sentiment.Scorer, error) {
	switch cfg.Sentiment.Scorer {
	case "llm":
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating llm provider: %w", err)
		}
		return sentiment.NewLLM(provider).WithTimeout(cfg.Sentiment.Timeout), nil
	default:
		return sentiment.NewLexicon(), nil
	}
}

func wireMarket(a *app.App, c config.MarketConfig, log *zap.Logger) error {
	if !c.Enabled {
		return nil
	}
	providers, err := crypto.Providers(c.Providers...)
	if err != nil {
		return err
	}
	col := crypto.New(providers, c.DefaultQuote, log)
	a.RegisterCollector(col)

	instruments := make([]app.Instrument, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if err := pair.Validate(s); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("market symbol %q: %w", s, err))
		}
		instruments = append(instruments, app.Instrument{
			Symbol:    pair.Normalize(s, c.DefaultQuote),
			Collector: col.Name(),
		})
	}
	a.SetInstruments(instruments)
	a.SetMarket(app.MarketSettings{
		Interval: c.Interval,
		Limit:    c.Limit,
		Timeout:  c.Timeout,
	})
	return nil
}

// newsFeeds returns the configured feeds, or the coin/macro default set.
func newsFeeds(c config.NewsConfig) []news.Feed {
	if len(c.Feeds) == 0 {
		return news.DefaultFeeds(c.Coins, c.ExtraTerms, c.MacroTerms)
	}
	feeds := make([]news.Feed, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		feeds = append(feeds, news.Feed{Source: f.Source, URL: f.URL, Query: f.Query, Group: f.Group})
	}
	return feeds
}

func wireNews(a *app.App, c config.NewsConfig) {
	if !c.Enabled {
		return
	}
	feeds := newsFeeds(c)
	reader := news.NewReader(&http.Client{Timeout: c.Timeout}, c.ItemLimit)

	var sources []collector.TextSource
	for _, s := range reader.Sources(feeds) {
		sources = append(sources, s)
	}
	a.SetSources(sources)
	a.SetGroups(news.Groups(feeds))
	a.SetNewsTimeout(c.Timeout)
}

func buildLedgerStore(c config.LedgerConfig) (dedup.Store, error) {
	switch c.Store {
	case "sqlite":
		return ledger.NewSQLite(c.SQLite.Path, c.Retention)
	case "redis":
		return ledger.NewRedis(
			ledger.WithRedisAddr(c.Redis.Addr),
			ledger.WithRedisPassword(c.Redis.Password),
			ledger.WithRedisDB(c.Redis.DB),
			ledger.WithRedisPrefix(c.Redis.Prefix),
			ledger.WithRedisRetention(c.Retention),
		)
	default:
		return dedup.NopStore{}, nil
	}
}

func buildArchive(c config.ReportConfig) (archive.Storage, error) {
	switch c.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    c.S3.Bucket,
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Prefix:    c.S3.Prefix,
		})
	default:
		return archive.NewLocalFS(c.Path)
	}
}

// buildNotifiers creates every enabled notifier, in name order.
func buildNotifiers(cfgs map[string]config.NotifierConfig) ([]notifier.Notifier, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []notifier.Notifier
	for _, name := range names {
		c := cfgs[name]
		if !c.Enabled {
			continue
		}
		n, err := buildNotifier(name, c)
		if err != nil {
			return nil, fmt.Errorf("creating %s notifier: %w", name, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func buildNotifier(name string, c config.NotifierConfig) (notifier.Notifier, error) {
	switch name {
	case "telegram":
		return telegram.New(c.BotToken, c.ChatID)
	case "webhook":
		return webhook.New(c.URL, c.Headers), nil
	case "email":
		return email.New(c.Host, c.Port, c.Username, c.Password, c.From, c.To), nil
	case "kafka":
		return kafka.New(c.Brokers, c.Topic)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
	}
}
