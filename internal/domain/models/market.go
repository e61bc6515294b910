package models

import "time"

// TickerSnapshot is a point-in-time view of one symbol's 24h statistics.
// Snapshots are immutable; a refresh cycle replaces the whole set.
type TickerSnapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change24h     float64   `json:"change_24h"`
	ChangePct24h  float64   `json:"change_pct_24h"`
	High24h       float64   `json:"high_24h"`
	Low24h        float64   `json:"low_24h"`
	QuoteVolume   float64   `json:"quote_volume"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// DailyCandle is one daily OHLCV bar. Candles arrive oldest to newest;
// the last bar of a series is the still-open day.
type DailyCandle struct {
	OpenTime    time.Time `json:"open_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	BaseVolume  float64   `json:"base_volume"`
	QuoteVolume float64   `json:"quote_volume"`
}

// VWAP returns the candle's daily volume-weighted average price,
// falling back to typical price when base volume is zero.
func (c DailyCandle) VWAP() float64 {
	if c.BaseVolume > 0 {
		return c.QuoteVolume / c.BaseVolume
	}
	return (c.High + c.Low + c.Close) / 3
}
