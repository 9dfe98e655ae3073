package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"signalfeed/internal/apperr"
	"signalfeed/internal/cache"
)

type stubSource struct {
	calls int32
	bars  []Bar
	err   error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) History(ctx context.Context, symbol, interval, period string) ([]Bar, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func (s *stubSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return Quote{}, s.err
	}
	return Quote{Symbol: symbol, Price: s.bars[len(s.bars)-1].Close}, nil
}

func TestBreakerSource_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubSource{err: errors.New("connection refused")}
	src := NewBreakerSource(inner, BreakerOptions{ConsecutiveFailures: 3, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		if _, err := src.History(context.Background(), "EURUSD", "1h", "5d"); !errors.Is(err, apperr.ErrDataUnavailable) {
			t.Fatalf("call %d err=%v want data_unavailable", i, err)
		}
	}
	if src.State() != gobreaker.StateOpen {
		t.Fatalf("state=%v want=open", src.State())
	}
	_, err := src.History(context.Background(), "EURUSD", "1h", "5d")
	if !errors.Is(err, apperr.ErrDataUnavailable) {
		t.Fatalf("open breaker err=%v want data_unavailable", err)
	}
	if got := atomic.LoadInt32(&inner.calls); got != 3 {
		t.Fatalf("inner calls=%d want=3", got)
	}
}

func TestCachedSource_HitsSkipInner(t *testing.T) {
	inner := &stubSource{bars: []Bar{{Close: 1.1}, {Close: 1.2}}}
	src := NewCachedSource(inner, cache.NewMemoryStore(), time.Minute, nil)

	for i := 0; i < 3; i++ {
		bars, err := src.History(context.Background(), "EURUSD", "1h", "5d")
		if err != nil || len(bars) != 2 || bars[1].Close != 1.2 {
			t.Fatalf("bars=%+v err=%v", bars, err)
		}
	}
	if got := atomic.LoadInt32(&inner.calls); got != 1 {
		t.Fatalf("inner calls=%d want=1", got)
	}
	if _, err := src.History(context.Background(), "EURUSD", "1d", "1mo"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := atomic.LoadInt32(&inner.calls); got != 2 {
		t.Fatalf("different key must miss: calls=%d", got)
	}
}

func TestCachedSource_ErrorsAreNotCached(t *testing.T) {
	inner := &stubSource{err: apperr.DataUnavailable("down")}
	src := NewCachedSource(inner, cache.NewMemoryStore(), time.Minute, nil)
	for i := 0; i < 2; i++ {
		if _, err := src.Quote(context.Background(), "EURUSD"); err == nil {
			t.Fatalf("expected error")
		}
	}
	if got := atomic.LoadInt32(&inner.calls); got != 2 {
		t.Fatalf("inner calls=%d want=2", got)
	}
}
