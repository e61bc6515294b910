package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	icache "GoldenScan/internal/service/cache"
	"GoldenScan/internal/service/ratelimit"
	xhttp "GoldenScan/pkg/http"
	applogger "GoldenScan/pkg/logger"
	"GoldenScan/pkg/util"
)

const (
	tickerPath = "/api/v3/ticker/24hr"
	klinesPath = "/api/v3/klines"

	tickerCacheKey = "tickers"
	klineCacheTTL  = time.Minute
)

// Client implements a MarketSource backed by Binance spot REST, with a
// secondary mirror endpoint for failover and a shared short-TTL cache.
type Client struct {
	primaryURL   string
	secondaryURL string
	quoteAsset   string
	stable       map[string]struct{}
	topK         int
	tickerTTL    time.Duration
	burst        float64
	rate         float64

	hc    *xhttp.Client
	cache *icache.TTLCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

// Option configures the client.
type Option func(*Client)

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.l = l }
}

// WithRequestLimit overrides the per-host token bucket settings.
func WithRequestLimit(burst, perSec float64) Option {
	return func(c *Client) { c.burst, c.rate = burst, perSec }
}

// New creates a Binance-backed MarketSource.
func New(primaryURL, secondaryURL, quoteAsset string, stableAssets []string, topK int, tickerTTL time.Duration, opts ...Option) *Client {
	stable := make(map[string]struct{}, len(stableAssets))
	for _, s := range stableAssets {
		stable[strings.ToUpper(s)] = struct{}{}
	}
	c := &Client{
		primaryURL:   strings.TrimRight(primaryURL, "/"),
		secondaryURL: strings.TrimRight(secondaryURL, "/"),
		quoteAsset:   strings.ToUpper(quoteAsset),
		stable:       stable,
		topK:         topK,
		tickerTTL:    tickerTTL,
		burst:        10,
		rate:         5,
		hc:           xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		cache:        icache.NewTTLCache(),
		rl:           ratelimit.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tickerRow struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	QuoteVolume        string `json:"quoteVolume"`
}

// FetchTickers returns the filtered top-K ticker snapshots. The result is
// shared across callers through a short-TTL cache; it fails only when both
// endpoints are down and no fresh cached copy exists.
func (c *Client) FetchTickers(ctx context.Context) ([]models.TickerSnapshot, error) {
	if v, ok := c.cache.Get(tickerCacheKey); ok {
		return v.([]models.TickerSnapshot), nil
	}

	rows, src, err := c.fetchTickerRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drepo.ErrSourceUnavailable, err)
	}

	now := time.Now().UTC()
	snaps := make([]models.TickerSnapshot, 0, len(rows))
	for _, r := range rows {
		if !c.tradable(r.Symbol) {
			continue
		}
		price := util.ParseFloat(r.LastPrice)
		if price <= 0 {
			// malformed or delisted record, skip it
			continue
		}
		snaps = append(snaps, models.TickerSnapshot{
			Symbol:       r.Symbol,
			Price:        price,
			Change24h:    util.ParseFloat(r.PriceChange),
			ChangePct24h: util.ParseFloat(r.PriceChangePercent),
			High24h:      util.ParseFloat(r.HighPrice),
			Low24h:       util.ParseFloat(r.LowPrice),
			QuoteVolume:  util.ParseFloat(r.QuoteVolume),
			Source:       src,
			FetchedAt:    now,
		})
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].QuoteVolume > snaps[j].QuoteVolume })
	if c.topK > 0 && len(snaps) > c.topK {
		snaps = snaps[:c.topK]
	}

	c.cache.Set(tickerCacheKey, snaps, c.tickerTTL)
	return snaps, nil
}

func (c *Client) fetchTickerRows(ctx context.Context) ([]tickerRow, string, error) {
	var rows []tickerRow
	primaryErr := c.getJSON(ctx, c.primaryURL, tickerPath, nil, &rows)
	if primaryErr == nil {
		return rows, hostOf(c.primaryURL), nil
	}
	if c.l != nil {
		c.l.Warn("primary ticker fetch failed, trying secondary", applogger.Error(primaryErr))
	}
	if err := c.getJSON(ctx, c.secondaryURL, tickerPath, nil, &rows); err != nil {
		return nil, "", fmt.Errorf("primary: %v; secondary: %v", primaryErr, err)
	}
	return rows, hostOf(c.secondaryURL), nil
}

// FetchDailyCandles returns up to limit daily candles for symbol, oldest
// first. The last candle is the still-open day. Rows that do not decode
// are skipped individually.
func (c *Client) FetchDailyCandles(ctx context.Context, symbol string, limit int) ([]models.DailyCandle, error) {
	key := "klines:" + symbol
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.DailyCandle), nil
	}

	params := map[string][]string{
		"symbol":   {symbol},
		"interval": {"1d"},
		"limit":    {fmt.Sprintf("%d", limit)},
	}

	var raw [][]json.RawMessage
	if err := c.getJSON(ctx, c.primaryURL, klinesPath, params, &raw); err != nil {
		if c.l != nil {
			c.l.Warn("primary kline fetch failed, trying secondary",
				applogger.String("symbol", symbol), applogger.Error(err))
		}
		if err2 := c.getJSON(ctx, c.secondaryURL, klinesPath, params, &raw); err2 != nil {
			return nil, fmt.Errorf("%w: klines %s: %v", drepo.ErrSourceUnavailable, symbol, err2)
		}
	}

	candles := make([]models.DailyCandle, 0, len(raw))
	for _, row := range raw {
		cd, err := parseKlineRow(row)
		if err != nil {
			if c.l != nil {
				c.l.Debug("skipping malformed kline row", applogger.String("symbol", symbol), applogger.Error(err))
			}
			continue
		}
		candles = append(candles, cd)
	}

	c.cache.Set(key, candles, klineCacheTTL)
	return candles, nil
}

// Kline rows arrive as heterogeneous arrays:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, ...]
func parseKlineRow(row []json.RawMessage) (models.DailyCandle, error) {
	var cd models.DailyCandle
	if len(row) < 8 {
		return cd, fmt.Errorf("kline row has %d fields", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return cd, fmt.Errorf("open time: %w", err)
	}
	fields := [6]*float64{&cd.Open, &cd.High, &cd.Low, &cd.Close, &cd.BaseVolume, &cd.QuoteVolume}
	idx := [6]int{1, 2, 3, 4, 5, 7}
	for i, p := range fields {
		var s string
		if err := json.Unmarshal(row[idx[i]], &s); err != nil {
			return cd, fmt.Errorf("field %d: %w", idx[i], err)
		}
		*p = util.ParseFloat(s)
	}

	cd.OpenTime = time.UnixMilli(openMs).UTC()
	return cd, nil
}

func (c *Client) getJSON(ctx context.Context, base, path string, params map[string][]string, dest interface{}) error {
	host := hostOf(base)
	if err := c.rl.Wait(ctx, host, c.burst, c.rate); err != nil {
		return err
	}
	return c.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         base + path,
		QueryParams: params,
	}, dest)
}

// tradable applies the quote-asset allow-list and the stablecoin exclusion.
func (c *Client) tradable(symbol string) bool {
	if !strings.HasSuffix(symbol, c.quoteAsset) {
		return false
	}
	base := strings.TrimSuffix(symbol, c.quoteAsset)
	if base == "" {
		return false
	}
	_, isStable := c.stable[base]
	return !isStable
}

func hostOf(base string) string {
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return u.Host
	}
	return base
}

var _ drepo.MarketSource = (*Client)(nil)
