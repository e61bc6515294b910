package models

import "time"

// LevelSet holds the structural VWAP levels derived from one symbol's
// daily candles. Max and Min only move when a daily candle completes;
// Mid tracks the live day.
type LevelSet struct {
	Symbol          string    `json:"symbol"`
	Max             float64   `json:"max"`
	Min             float64   `json:"min"`
	Mid             float64   `json:"mid"`
	Slope           float64   `json:"slope"`
	NormalizedSlope float64   `json:"normalized_slope"`
	ComputedAt      time.Time `json:"computed_at"`
}
