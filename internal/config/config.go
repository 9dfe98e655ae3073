package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Ingestion  IngestionConfig  `mapstructure:"ingestion"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File, when set, additionally writes JSON logs to a rotated file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// StoreConfig selects the signal store backend: postgres, memory or badger.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	BadgerDir string `mapstructure:"badger_dir"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type MarketDataConfig struct {
	Provider       string        `mapstructure:"provider"`
	YahooBaseURL   string        `mapstructure:"yahoo_base_url"`
	BinanceBaseURL string        `mapstructure:"binance_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Interval       string        `mapstructure:"interval"`
	Period         string        `mapstructure:"period"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type AnalyzerConfig struct {
	TriggerPct     float64 `mapstructure:"trigger_pct"`
	StrengthScale  float64 `mapstructure:"strength_scale"`
	BaseConfidence float64 `mapstructure:"base_confidence"`
	MinSamples     int     `mapstructure:"min_samples"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"`
}

type IngestionConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Symbols      []string      `mapstructure:"symbols"`
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	TTL          time.Duration `mapstructure:"ttl"`
	Window       string        `mapstructure:"window"`
	Schedule     string        `mapstructure:"schedule"`
}

type PolicyConfig struct {
	RecommendThreshold float64 `mapstructure:"recommend_threshold"`
}

type AuditConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads path (YAML) unless envOnly, then applies SF_* environment
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string, envOnly bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("SF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.badger_dir", "data/signals")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "30s")

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.binance_base_url", "")
	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.interval", "1h")
	v.SetDefault("market_data.period", "5d")
	v.SetDefault("market_data.breaker.enabled", true)
	v.SetDefault("market_data.breaker.max_requests", 1)
	v.SetDefault("market_data.breaker.interval", "60s")
	v.SetDefault("market_data.breaker.timeout", "30s")
	v.SetDefault("market_data.breaker.consecutive_failures", 5)

	v.SetDefault("analyzer.trigger_pct", 0.5)
	v.SetDefault("analyzer.strength_scale", 4.0)
	v.SetDefault("analyzer.base_confidence", 50.0)
	v.SetDefault("analyzer.min_samples", 5)
	v.SetDefault("analyzer.stop_loss_pct", 1.0)
	v.SetDefault("analyzer.take_profit_pct", 2.0)

	v.SetDefault("ingestion.enabled", true)
	v.SetDefault("ingestion.symbols", []string{"EURUSD=X", "GBPUSD=X", "USDJPY=X", "GC=F"})
	v.SetDefault("ingestion.workers", 4)
	v.SetDefault("ingestion.fetch_timeout", "10s")
	v.SetDefault("ingestion.ttl", "24h")
	v.SetDefault("ingestion.window", "calendar_day")
	v.SetDefault("ingestion.schedule", "0 */15 * * * *")

	v.SetDefault("policy.recommend_threshold", 80.0)

	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.api_key", "")
	v.SetDefault("audit.timeout", "2s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Ingestion.Symbols = splitSymbols(cfg.Ingestion.Symbols)

	return cfg, nil
}

// splitSymbols accepts both a YAML list and a comma-separated env value.
func splitSymbols(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
