package marketdata

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"signalfeed/internal/cache"
	"signalfeed/internal/config"
)

// New builds the configured provider wrapped with the breaker and cache
// decorators. Cache is outermost so hits never count against the breaker.
func New(cfg config.MarketDataConfig, store cache.Store, cacheCfg config.CacheConfig, logger *zap.Logger) (Source, error) {
	var src Source
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "yahoo":
		src = NewYahooSource(YahooOptions{BaseURL: cfg.YahooBaseURL, Timeout: cfg.Timeout, RetryCount: 2})
	case "binance":
		src = NewBinanceSource(BinanceOptions{BaseURL: cfg.BinanceBaseURL})
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.Provider)
	}
	if cfg.Breaker.Enabled {
		src = NewBreakerSource(src, BreakerOptions{
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		}, logger)
	}
	if store != nil && cacheCfg.TTL > 0 {
		src = NewCachedSource(src, store, cacheCfg.TTL, logger)
	}
	return src, nil
}
