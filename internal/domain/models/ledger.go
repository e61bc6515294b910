package models

import "time"

// TrackedSignal is one golden-signal occurrence tracked by the ledger
// from open until it ages out of the retention window.
type TrackedSignal struct {
	Symbol             string        `json:"symbol"`
	EntryPrice         float64       `json:"entry_price"`
	SignalTime         time.Time     `json:"signal_time"`
	MaxPriceSeen       float64       `json:"max_price_seen"`
	MaxGainPct         float64       `json:"max_gain_pct"`
	LastPrice          float64       `json:"last_price"`
	StillActive        bool          `json:"still_active"`
	ExitPrice          float64       `json:"exit_price,omitempty"`
	ExitTime           *time.Time    `json:"exit_time,omitempty"`
	RealizedPnlPct     float64       `json:"realized_pnl_pct,omitempty"`
	PriceHistorySample []PricePoint  `json:"price_history_sample,omitempty"`
	TPHit              bool          `json:"tp_hit"`
}

// PricePoint is one sampled observation in an entry's price history.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Age returns how long ago the entry was opened.
func (t *TrackedSignal) Age(now time.Time) time.Duration {
	return now.Sub(t.SignalTime)
}

// GainPct returns the unrealized gain of an open entry at price p.
func (t *TrackedSignal) GainPct(p float64) float64 {
	if t.EntryPrice <= 0 {
		return 0
	}
	return (p - t.EntryPrice) / t.EntryPrice * 100
}

// GoldenStats holds the process-wide outcome counters. Monotonic except
// for an explicit reset.
type GoldenStats struct {
	TotalSignals int `json:"total_signals"`
	SuccessCount int `json:"success_count"`
}

// AlertConfig is the persisted notification configuration.
type AlertConfig struct {
	BotToken string   `json:"bot_token"`
	ChatIDs  []string `json:"chat_ids"`
	Enabled  bool     `json:"enabled"`
}

// Preferences holds user-scoped settings persisted alongside the ledger.
type Preferences struct {
	AudioAlerts bool `json:"audio_alerts"`
}
