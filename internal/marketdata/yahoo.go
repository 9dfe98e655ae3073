package marketdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"signalfeed/internal/apperr"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

type YahooOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// YahooSource reads the Yahoo chart endpoint.
type YahooSource struct {
	client *resty.Client
}

func NewYahooSource(opts YahooOptions) *YahooSource {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultYahooBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := opts.RetryCount
	if retries < 0 {
		retries = 0
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return resp != nil && (resp.StatusCode() == 429 || resp.StatusCode() >= 500)
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "signalfeed/1.0")
	return &YahooSource{client: client}
}

func (s *YahooSource) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64    `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (s *YahooSource) chart(ctx context.Context, symbol, interval, period string) (*chartResult, error) {
	var out chartResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParam("interval", interval).
		SetQueryParam("range", period).
		SetResult(&out).
		SetError(&out).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, err
	}
	if out.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s", out.Chart.Error.Code, out.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d", resp.StatusCode())
	}
	if len(out.Chart.Result) == 0 {
		return nil, apperr.DataUnavailable("yahoo: no data for %s", symbol)
	}
	return &out.Chart.Result[0], nil
}

func (s *YahooSource) History(ctx context.Context, symbol, interval, period string) ([]Bar, error) {
	res, err := s.chart(ctx, symbol, interval, period)
	if err != nil {
		return nil, unavailable("yahoo", symbol, err)
	}
	return res.bars(), nil
}

// Quote prefers the regular market price and falls back to the latest close.
func (s *YahooSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	res, err := s.chart(ctx, symbol, "1m", "1d")
	if err != nil {
		return Quote{}, unavailable("yahoo", symbol, err)
	}
	if p := res.Meta.RegularMarketPrice; p != nil && *p > 0 {
		ts := time.Now().UTC()
		if res.Meta.RegularMarketTime > 0 {
			ts = time.Unix(res.Meta.RegularMarketTime, 0).UTC()
		}
		return Quote{Symbol: symbol, Price: *p, Timestamp: ts}, nil
	}
	bars := res.bars()
	if len(bars) == 0 {
		return Quote{}, apperr.DataUnavailable("yahoo: no price for %s", symbol)
	}
	last := bars[len(bars)-1]
	return Quote{Symbol: symbol, Price: last.Close, Timestamp: last.Time}, nil
}

func (r *chartResult) bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	out := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c == nil {
			continue
		}
		out = append(out, Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  *c,
			Volume: at(q.Volume, i),
		})
	}
	return out
}

func at(vals []*float64, i int) *float64 {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}
