package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
)

const maxKlines = 1000

type BinanceOptions struct {
	// BaseURL overrides the REST endpoint, mostly for tests.
	BaseURL string
}

// BinanceSource reads public spot klines; no API key is needed.
type BinanceSource struct {
	client *binance.Client
}

func NewBinanceSource(opts BinanceOptions) *BinanceSource {
	client := binance.NewClient("", "")
	if base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		client.BaseURL = base
	}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) Name() string { return "binance" }

// binanceSymbol maps BTC-USDT or btc/usdt to BTCUSDT.
func binanceSymbol(symbol string) string {
	r := strings.NewReplacer("-", "", "/", "", "_", "", " ", "")
	return strings.ToUpper(r.Replace(symbol))
}

func binanceInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "60m", "90m":
		return "1h"
	case "1wk":
		return "1w"
	case "1mo":
		return "1M"
	case "":
		return "1h"
	default:
		return strings.ToLower(strings.TrimSpace(interval))
	}
}

// klineLimit converts a period into a bar count for the given interval.
func klineLimit(interval, period string) int {
	iv, err := ParseSpan(interval)
	if err != nil || iv <= 0 {
		return 100
	}
	p, err := ParseSpan(period)
	if err != nil || p <= 0 {
		return 100
	}
	n := int(p / iv)
	if n < 1 {
		n = 1
	}
	if n > maxKlines {
		n = maxKlines
	}
	return n
}

func (s *BinanceSource) History(ctx context.Context, symbol, interval, period string) ([]Bar, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(binanceSymbol(symbol)).
		Interval(binanceInterval(interval)).
		Limit(klineLimit(interval, period)).
		Do(ctx)
	if err != nil {
		return nil, unavailable("binance", symbol, err)
	}
	out := make([]Bar, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			continue
		}
		out = append(out, Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   optionalFloat(k.Open),
			High:   optionalFloat(k.High),
			Low:    optionalFloat(k.Low),
			Close:  closePrice,
			Volume: optionalFloat(k.Volume),
		})
	}
	return out, nil
}

func (s *BinanceSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	prices, err := s.client.NewListPricesService().Symbol(binanceSymbol(symbol)).Do(ctx)
	if err != nil {
		return Quote{}, unavailable("binance", symbol, err)
	}
	for _, p := range prices {
		if p == nil {
			continue
		}
		v, err := strconv.ParseFloat(p.Price, 64)
		if err != nil || v <= 0 {
			continue
		}
		return Quote{Symbol: symbol, Price: v, Timestamp: time.Now().UTC()}, nil
	}
	return Quote{}, unavailable("binance", symbol, fmt.Errorf("no price returned"))
}

// optionalFloat returns nil for an empty or malformed value.
func optionalFloat(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}
