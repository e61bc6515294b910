package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	drepo "GoldenScan/internal/domain/repository"
)

const tickerBody = `[
  {"symbol":"BTCUSDT","lastPrice":"50000","priceChange":"100","priceChangePercent":"0.2","highPrice":"51000","lowPrice":"49000","quoteVolume":"900000000"},
  {"symbol":"ETHUSDT","lastPrice":"3000","priceChange":"-10","priceChangePercent":"-0.3","highPrice":"3100","lowPrice":"2900","quoteVolume":"400000000"},
  {"symbol":"USDCUSDT","lastPrice":"1.0","priceChange":"0","priceChangePercent":"0","highPrice":"1.0","lowPrice":"1.0","quoteVolume":"800000000"},
  {"symbol":"BTCBUSD","lastPrice":"50000","priceChange":"0","priceChangePercent":"0","highPrice":"0","lowPrice":"0","quoteVolume":"100"},
  {"symbol":"BADUSDT","lastPrice":"not-a-number","priceChange":"0","priceChangePercent":"0","highPrice":"0","lowPrice":"0","quoteVolume":"50"}
]`

func newTestClient(primary, secondary string) *Client {
	c := New(primary, secondary, "USDT", []string{"USDC", "TUSD"}, 250, 30*time.Second,
		WithRequestLimit(100, 100))
	return c
}

func TestFetchTickersFiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(tickerBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	snaps, err := c.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// USDC pair excluded (stable), BUSD pair excluded (quote filter),
	// malformed price skipped.
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Symbol != "BTCUSDT" || snaps[1].Symbol != "ETHUSDT" {
		t.Fatalf("expected volume-descending order, got %s %s", snaps[0].Symbol, snaps[1].Symbol)
	}
}

func TestFetchTickersFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tickerBody))
	}))
	defer good.Close()

	c := newTestClient(bad.URL, good.URL)
	snaps, err := c.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("expected failover to succeed: %v", err)
	}
	if len(snaps) == 0 {
		t.Fatalf("expected snapshots from secondary")
	}
}

func TestFetchTickersBothDown(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	c := newTestClient(bad.URL, bad.URL)
	if _, err := c.FetchTickers(context.Background()); !errors.Is(err, drepo.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetchTickersServesCacheWhileFresh(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(tickerBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := c.FetchTickers(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
}

func TestFetchDailyCandlesSkipsMalformedRows(t *testing.T) {
	body := `[
	  [1728259200000,"100","110","95","105","1000",1728345599999,"102500",10,"0","0","0"],
	  ["garbage"],
	  [1728345600000,"105","112","101","108","900",1728431999999,"96300",9,"0","0","0"]
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("expected 1d interval, got %q", got)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	candles, err := c.FetchDailyCandles(context.Background(), "BTCUSDT", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 parsed candles, got %d", len(candles))
	}
	if candles[0].Open != 100 || candles[0].QuoteVolume != 102500 {
		t.Fatalf("unexpected first candle: %+v", candles[0])
	}
	if got := candles[0].VWAP(); got != 102.5 {
		t.Fatalf("expected VWAP 102.5, got %v", got)
	}
}
