package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/newthinker/pulse/internal/core"
)

type Config struct {
	Log       LogConfig                 `mapstructure:"log"`
	Interval  time.Duration             `mapstructure:"interval" default:"1m" validate:"min=1s"`
	Workers   int                       `mapstructure:"workers" default:"4" validate:"min=1,max=64"`
	Server    ServerConfig              `mapstructure:"server"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Engine    EngineConfig              `mapstructure:"engine"`
	Market    MarketConfig              `mapstructure:"market"`
	News      NewsConfig                `mapstructure:"news"`
	Sentiment SentimentConfig           `mapstructure:"sentiment"`
	LLM       LLMConfig                 `mapstructure:"llm"`
	Ledger    LedgerConfig              `mapstructure:"ledger"`
	Report    ReportConfig              `mapstructure:"report"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Router    RouterConfig              `mapstructure:"router"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Host    string `mapstructure:"host" default:"0.0.0.0"`
	Port    int    `mapstructure:"port" default:"8080" validate:"min=1,max=65535"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics" validate:"startswith=/"`
}

// EngineConfig holds indicator periods and classification thresholds.
type EngineConfig struct {
	EMAFastPeriod    int     `mapstructure:"ema_fast_period" default:"9" validate:"min=1"`
	EMASlowPeriod    int     `mapstructure:"ema_slow_period" default:"21" validate:"min=1"`
	RSIPeriod        int     `mapstructure:"rsi_period" default:"14" validate:"min=1"`
	RSIOversold      float64 `mapstructure:"rsi_oversold" default:"30" validate:"gte=0,lte=100"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought" default:"70" validate:"gte=0,lte=100,gtfield=RSIOversold"`
	FundingThreshold float64 `mapstructure:"funding_threshold" validate:"gte=0"`
	AlertThreshold   float64 `mapstructure:"alert_threshold" default:"0.4" validate:"gt=0,lte=1"`
	SeriesCapacity   int     `mapstructure:"series_capacity" default:"100" validate:"min=2"`
}

// MarketConfig selects instruments and the exchanges polled for them.
type MarketConfig struct {
	Enabled      bool          `mapstructure:"enabled" default:"true"`
	Providers    []string      `mapstructure:"providers" validate:"dive,oneof=binance okx"`
	Symbols      []string      `mapstructure:"symbols" validate:"dive,required"`
	Interval     string        `mapstructure:"interval" default:"1m" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 1d"`
	Limit        int           `mapstructure:"limit" default:"100" validate:"min=2,max=1000"`
	DefaultQuote string        `mapstructure:"default_quote" default:"USDT"`
	Timeout      time.Duration `mapstructure:"timeout" default:"10s"`
}

// NewsConfig describes the feeds to read. When Feeds is empty a feed set
// is generated from Coins, ExtraTerms and MacroTerms.
type NewsConfig struct {
	Enabled    bool          `mapstructure:"enabled" default:"true"`
	Coins      []string      `mapstructure:"coins"`
	ExtraTerms []string      `mapstructure:"extra_terms"`
	MacroTerms []string      `mapstructure:"macro_terms"`
	Feeds      []FeedConfig  `mapstructure:"feeds" validate:"dive"`
	ItemLimit  int           `mapstructure:"item_limit" default:"5" validate:"min=1,max=100"`
	Timeout    time.Duration `mapstructure:"timeout" default:"15s"`
}

type FeedConfig struct {
	Source string `mapstructure:"source" validate:"required"`
	URL    string `mapstructure:"url" validate:"required_without=Query"`
	Query  string `mapstructure:"query"`
	Group  string `mapstructure:"group" validate:"required"`
}

type SentimentConfig struct {
	Scorer  string        `mapstructure:"scorer" default:"lexicon" validate:"oneof=lexicon llm"`
	Timeout time.Duration `mapstructure:"timeout" default:"20s"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// LedgerConfig selects where admitted dedup keys survive between runs.
type LedgerConfig struct {
	Store     string        `mapstructure:"store" default:"none" validate:"oneof=none sqlite redis"`
	Retention time.Duration `mapstructure:"retention" default:"24h"`
	SQLite    SQLiteConfig  `mapstructure:"sqlite"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" default:"./data/ledger.db"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix" default:"pulse"`
}

// ReportConfig controls the per-run sentiment report.
type ReportConfig struct {
	Enabled bool     `mapstructure:"enabled" default:"true"`
	Type    string   `mapstructure:"type" default:"localfs" validate:"oneof=localfs s3"`
	Path    string   `mapstructure:"path" default:"./data/reports"`
	Key     string   `mapstructure:"key" default:"news_sentiment.json"`
	History int      `mapstructure:"history" validate:"min=0"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region" default:"us-east-1"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Webhook
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	// Email
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Kafka
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RouterConfig struct {
	Kinds       []string `mapstructure:"kinds" validate:"dive,oneof=LONG SHORT POSITIVE NEGATIVE"`
	MinStrength float64  `mapstructure:"min_strength" validate:"gte=0,lte=1"`
	HistorySize int      `mapstructure:"history_size" default:"500" validate:"min=1"`
	Batch       bool     `mapstructure:"batch" default:"true"`
}

// Default instrument and news lists.
var (
	DefaultProviders  = []string{"binance", "okx"}
	DefaultSymbols    = []string{"SOL/USDT", "ETH/USDT"}
	DefaultCoins      = []string{"bitcoin", "ethereum", "solana"}
	DefaultExtraTerms = []string{"crypto", "cryptocurrency", "altcoin", "web3"}
	DefaultMacroTerms = []string{"inflation", "interest rates", "recession", "federal reserve", "tariffs", "geopolitics", "regulation"}
)

var validate = validator.New()

// Load reads configuration from file. Struct-tag defaults are applied before
// the file so explicit zero values in the file win.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${VAR} string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyListDefaults()

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid default tag: %v", err))
	}
	cfg.applyListDefaults()
	return cfg
}

// List defaults are filled after unmarshaling; a configured list replaces
// the default instead of merging with it.
func (c *Config) applyListDefaults() {
	if len(c.Market.Providers) == 0 {
		c.Market.Providers = append([]string(nil), DefaultProviders...)
	}
	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if !c.News.hasSources() {
		c.News.Coins = append([]string(nil), DefaultCoins...)
		c.News.ExtraTerms = append([]string(nil), DefaultExtraTerms...)
		c.News.MacroTerms = append([]string(nil), DefaultMacroTerms...)
	}
}

func (n NewsConfig) hasSources() bool {
	return len(n.Feeds) > 0 || len(n.Coins) > 0 || len(n.MacroTerms) > 0
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s failed %q (value %v)", e.Namespace(), e.Tag(), e.Value()))
		}
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	// LLM validation - the llm scorer needs a usable provider
	if c.Sentiment.Scorer == "llm" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		case "":
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("llm.provider required when sentiment.scorer is llm"))
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	if c.Report.Enabled && c.Report.Type == "s3" && c.Report.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("report.s3.bucket required when report type is s3"))
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		if err := n.validate(name); err != nil {
			return err
		}
	}

	return nil
}

func (n NotifierConfig) validate(name string) error {
	missing := func(field string) error {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notifiers.%s.%s required", name, field))
	}
	switch name {
	case "telegram":
		if n.BotToken == "" {
			return missing("bot_token")
		}
		if n.ChatID == "" {
			return missing("chat_id")
		}
	case "webhook":
		if n.URL == "" {
			return missing("url")
		}
	case "email":
		if n.Host == "" {
			return missing("host")
		}
		if len(n.To) == 0 {
			return missing("to")
		}
	case "kafka":
		if len(n.Brokers) == 0 {
			return missing("brokers")
		}
		if n.Topic == "" {
			return missing("topic")
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
	}
	return nil
}
