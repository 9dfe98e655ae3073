package marketdata

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerOptions struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BreakerSource stops calling a failing upstream for a while. An open
// breaker is reported as data_unavailable like any other upstream failure.
type BreakerSource struct {
	inner Source
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerSource(inner Source, opts BreakerOptions, logger *zap.Logger) *BreakerSource {
	failures := opts.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "marketdata-" + inner.Name(),
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("market data breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerSource{inner: inner, cb: cb}
}

func (s *BreakerSource) Name() string { return s.inner.Name() }

func (s *BreakerSource) State() gobreaker.State { return s.cb.State() }

func (s *BreakerSource) History(ctx context.Context, symbol, interval, period string) ([]Bar, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.History(ctx, symbol, interval, period)
	})
	if err != nil {
		return nil, unavailable(s.Name(), symbol, err)
	}
	bars, _ := out.([]Bar)
	return bars, nil
}

func (s *BreakerSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.Quote(ctx, symbol)
	})
	if err != nil {
		return Quote{}, unavailable(s.Name(), symbol, err)
	}
	q, _ := out.(Quote)
	return q, nil
}
