package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBinanceSource_History(t *testing.T) {
	var gotSymbol, gotInterval, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		gotSymbol = r.URL.Query().Get("symbol")
		gotInterval = r.URL.Query().Get("interval")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
  [1773100000000,"65000.0","65100.0","64900.0","65050.0","12.5",1773103599999,"0",10,"0","0","0"],
  [1773103600000,"65050.0","65500.0","65000.0","65400.0","8.1",1773107199999,"0",12,"0","0","0"]
]`))
	}))
	defer srv.Close()

	src := NewBinanceSource(BinanceOptions{BaseURL: srv.URL})
	bars, err := src.History(context.Background(), "btc-usdt", "1h", "2h")
	if err != nil {
		t.Fatalf("History err=%v", err)
	}
	if gotSymbol != "BTCUSDT" || gotInterval != "1h" || gotLimit != "2" {
		t.Fatalf("symbol=%q interval=%q limit=%q", gotSymbol, gotInterval, gotLimit)
	}
	if len(bars) != 2 || bars[1].Close != 65400 {
		t.Fatalf("bars=%+v", bars)
	}
}

func TestKlineLimit(t *testing.T) {
	if got := klineLimit("1h", "5d"); got != 120 {
		t.Fatalf("limit=%d want=120", got)
	}
	if got := klineLimit("1m", "1y"); got != maxKlines {
		t.Fatalf("limit=%d want=%d", got, maxKlines)
	}
	if got := binanceInterval("1wk"); got != "1w" {
		t.Fatalf("interval=%q want=1w", got)
	}
}

func TestOptionalFloat(t *testing.T) {
	if v := optionalFloat("65000.5"); v == nil || *v != 65000.5 {
		t.Fatalf("optionalFloat(65000.5)=%v", v)
	}
	for _, raw := range []string{"", "  ", "n/a"} {
		if v := optionalFloat(raw); v != nil {
			t.Fatalf("optionalFloat(%q)=%v want=nil", raw, *v)
		}
	}
}
