package levels

import (
	"context"
	"fmt"
	"math"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	icache "GoldenScan/internal/service/cache"
	"GoldenScan/pkg/util"
)

const (
	atrLookback   = 14
	slopeLookback = 10
)

// Calculator derives structural VWAP levels from daily candles. Results
// are cached per symbol for a short TTL to bound upstream query rate.
type Calculator struct {
	source      drepo.MarketSource
	cache       *icache.TTLCache
	ttl         time.Duration
	candleLimit int
	now         func() time.Time
}

// Option configures the calculator.
type Option func(*Calculator)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// New creates a level calculator reading candles from source.
func New(source drepo.MarketSource, ttl time.Duration, candleLimit int, opts ...Option) *Calculator {
	c := &Calculator{
		source:      source,
		cache:       icache.NewTTLCache(),
		ttl:         ttl,
		candleLimit: candleLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinCandles is the history needed to cover the slope lookback plus the
// volatility window.
func (c *Calculator) MinCandles() int { return atrLookback + slopeLookback }

// ComputeLevels derives the level set for one symbol. Returns
// ErrInsufficientHistory when the symbol has too few daily candles;
// callers treat that as "no signal", not a failure.
func (c *Calculator) ComputeLevels(ctx context.Context, symbol string) (*models.LevelSet, error) {
	if v, ok := c.cache.Get(symbol); ok {
		return v.(*models.LevelSet), nil
	}

	candles, err := c.source.FetchDailyCandles(ctx, symbol, c.candleLimit)
	if err != nil {
		return nil, fmt.Errorf("levels %s: %w", symbol, err)
	}
	if len(candles) < c.MinCandles() {
		return nil, fmt.Errorf("levels %s: %w (have %d, need %d)",
			symbol, drepo.ErrInsufficientHistory, len(candles), c.MinCandles())
	}

	ls := Derive(candles, c.now().UTC())
	ls.Symbol = symbol

	c.cache.Set(symbol, ls, c.ttl)
	return ls, nil
}

// Derive computes a level set from an ordered candle series (oldest
// first, last element the still-open day). Pure; exported for tests and
// offline tooling.
func Derive(candles []models.DailyCandle, now time.Time) *models.LevelSet {
	live := candles[len(candles)-1]
	completed := candles[:len(candles)-1]
	mid := live.VWAP()

	// Structural max/min: completed days since the most recent Monday
	// 00:00 UTC only, so levels stay frozen intra-day.
	weekStart := util.WeekStartUTC(now)
	max, min := math.Inf(-1), math.Inf(1)
	seen := false
	for _, cd := range completed {
		if cd.OpenTime.Before(weekStart) {
			continue
		}
		v := cd.VWAP()
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
		seen = true
	}
	if !seen {
		// no completed day this week yet (early Monday)
		max, min = mid, mid
	}

	atr := averageTrueRange(completed, atrLookback)

	slope := mid - candles[len(candles)-1-slopeLookback].VWAP()
	var nslope float64
	if atr > 0 {
		nslope = slope / atr
	}

	return &models.LevelSet{
		Max:             max,
		Min:             min,
		Mid:             mid,
		Slope:           slope,
		NormalizedSlope: nslope,
		ComputedAt:      now,
	}
}

// averageTrueRange computes ATR over the last n completed days.
// TR(i) = max(high-low, |high-prevClose|, |low-prevClose|).
func averageTrueRange(candles []models.DailyCandle, n int) float64 {
	if len(candles) < 2 {
		return 0
	}
	start := len(candles) - n
	if start < 1 {
		start = 1
	}
	var sum float64
	var count int
	for i := start; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		tr := candles[i].High - candles[i].Low
		if v := math.Abs(candles[i].High - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(candles[i].Low - prevClose); v > tr {
			tr = v
		}
		sum += tr
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
