package marketdata

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"signalfeed/internal/cache"
)

// CachedSource memoizes successful responses for TTL. Cache faults are
// logged and fall through to the inner source.
type CachedSource struct {
	inner  Source
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSource(inner Source, store cache.Store, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{inner: inner, store: store, ttl: ttl, logger: logger}
}

func (s *CachedSource) Name() string { return s.inner.Name() }

func (s *CachedSource) key(parts ...string) string {
	return "md:" + s.inner.Name() + ":" + strings.Join(parts, ":")
}

func (s *CachedSource) History(ctx context.Context, symbol, interval, period string) ([]Bar, error) {
	key := s.key("hist", symbol, interval, period)
	var bars []Bar
	if s.load(ctx, key, &bars) {
		return bars, nil
	}
	bars, err := s.inner.History(ctx, symbol, interval, period)
	if err != nil {
		return nil, err
	}
	s.save(ctx, key, bars)
	return bars, nil
}

func (s *CachedSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	key := s.key("quote", symbol)
	var q Quote
	if s.load(ctx, key, &q) {
		return q, nil
	}
	q, err := s.inner.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	s.save(ctx, key, q)
	return q, nil
}

func (s *CachedSource) load(ctx context.Context, key string, out any) bool {
	if s.store == nil || s.ttl <= 0 {
		return false
	}
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Debug("market data cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		_ = s.store.Delete(ctx, key)
		return false
	}
	return true
}

func (s *CachedSource) save(ctx context.Context, key string, v any) {
	if s.store == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Debug("market data cache set failed", zap.String("key", key), zap.Error(err))
	}
}
