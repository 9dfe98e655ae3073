// Package marketdata supplies last prices and OHLC history. Every failure a
// caller can see is classified as data_unavailable.
package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"signalfeed/internal/apperr"
)

type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Bar is one OHLC sample. Close is always a real observed price; samples with
// a missing close are dropped by the adapters. The other fields are nil when
// the provider did not report them.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   *float64  `json:"open,omitempty"`
	High   *float64  `json:"high,omitempty"`
	Low    *float64  `json:"low,omitempty"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume,omitempty"`
}

type Source interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
	History(ctx context.Context, symbol, interval, period string) ([]Bar, error)
}

func unavailable(source, symbol string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) == apperr.KindDataUnavailable {
		return err
	}
	return apperr.Wrap(apperr.KindDataUnavailable, err, "%s: %s", source, symbol)
}

// ParseSpan parses Yahoo-style spans: 30m, 1h, 5d, 1wk, 1mo, 1y.
func ParseSpan(raw string) (time.Duration, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"mo", 30 * 24 * time.Hour},
		{"wk", 7 * 24 * time.Hour},
		{"y", 365 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}
	for _, u := range units {
		if !strings.HasSuffix(v, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(v, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid span %q", raw)
		}
		return time.Duration(n) * u.unit, nil
	}
	return 0, fmt.Errorf("invalid span %q", raw)
}
