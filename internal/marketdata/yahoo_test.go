package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalfeed/internal/apperr"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"EURUSD=X","regularMarketPrice":1.0851,"regularMarketTime":1773133200},
  "timestamp":[1773100000,1773103600,1773107200,1773110800],
  "indicators":{"quote":[{
    "open":[1.08,1.081,null,1.083],
    "high":[1.081,1.082,null,1.084],
    "low":[1.079,1.08,null,1.082],
    "close":[1.0805,1.0815,null,1.0835],
    "volume":[0,0,null,0]
  }]}
}],"error":null}}`

func TestYahooSource_HistoryDropsNullCloses(t *testing.T) {
	var gotPath, gotInterval, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotRange = r.URL.Query().Get("range")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	src := NewYahooSource(YahooOptions{BaseURL: srv.URL, Timeout: 2 * time.Second})
	bars, err := src.History(context.Background(), "EURUSD=X", "1h", "5d")
	if err != nil {
		t.Fatalf("History err=%v", err)
	}
	if gotPath != "/v8/finance/chart/EURUSD=X" || gotInterval != "1h" || gotRange != "5d" {
		t.Fatalf("path=%q interval=%q range=%q", gotPath, gotInterval, gotRange)
	}
	if len(bars) != 3 {
		t.Fatalf("bars=%d want=3 (null close dropped)", len(bars))
	}
	if bars[2].Close != 1.0835 {
		t.Fatalf("last close=%v want=1.0835", bars[2].Close)
	}
	for _, b := range bars {
		if b.Close == 0 {
			t.Fatalf("null close must not become zero: %+v", b)
		}
	}
}

func TestYahooSource_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	q, err := NewYahooSource(YahooOptions{BaseURL: srv.URL}).Quote(context.Background(), "EURUSD=X")
	if err != nil {
		t.Fatalf("Quote err=%v", err)
	}
	if q.Price != 1.0851 {
		t.Fatalf("price=%v want=1.0851", q.Price)
	}
}

func TestYahooSource_ErrorsAreUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"chart error": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		},
		"empty result": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		},
	}
	for name, h := range cases {
		srv := httptest.NewServer(h)
		_, err := NewYahooSource(YahooOptions{BaseURL: srv.URL}).History(context.Background(), "NOPE", "1h", "5d")
		srv.Close()
		if !errors.Is(err, apperr.ErrDataUnavailable) {
			t.Fatalf("%s: err=%v want data_unavailable", name, err)
		}
	}
}

func TestYahooSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewYahooSource(YahooOptions{BaseURL: srv.URL}).History(ctx, "EURUSD=X", "1h", "5d")
	if !errors.Is(err, apperr.ErrDataUnavailable) {
		t.Fatalf("err=%v want data_unavailable", err)
	}
}

func TestParseSpan(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h", time.Hour},
		{"30m", 30 * time.Minute},
		{"5d", 5 * 24 * time.Hour},
		{"1wk", 7 * 24 * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseSpan(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseSpan(%q)=%v,%v want=%v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseSpan("soon"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestYahooSource_MissingFieldsStayNil(t *testing.T) {
	body := `{"chart":{"result":[{
  "meta":{"symbol":"GC=F"},
  "timestamp":[1773100000,1773103600],
  "indicators":{"quote":[{
    "open":[2300.5,null],
    "high":[2301],
    "low":[2299.5,null],
    "close":[2300.9,2301.2],
    "volume":[null,12]
  }]}
}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	bars, err := NewYahooSource(YahooOptions{BaseURL: srv.URL}).History(context.Background(), "GC=F", "1h", "1d")
	if err != nil {
		t.Fatalf("History err=%v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars=%d want=2", len(bars))
	}
	first, second := bars[0], bars[1]
	if first.Open == nil || *first.Open != 2300.5 || first.Volume != nil {
		t.Fatalf("first=%+v want open=2300.5 volume=nil", first)
	}
	if second.Open != nil || second.High != nil || second.Low != nil {
		t.Fatalf("second open/high/low must be nil, got %v %v %v", second.Open, second.High, second.Low)
	}
	if second.Volume == nil || *second.Volume != 12 {
		t.Fatalf("second volume=%v want=12", second.Volume)
	}
}
