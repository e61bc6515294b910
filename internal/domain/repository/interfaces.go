package repository

import (
	"context"
	"errors"

	"GoldenScan/internal/domain/models"
)

// ErrSourceUnavailable is returned when both market data endpoints failed
// and no fresh cached result exists.
var ErrSourceUnavailable = errors.New("market source unavailable")

// ErrInsufficientHistory marks a symbol with too few daily candles to
// derive levels. Callers treat it as "no signal", not as a failure.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// MarketSource provides ticker snapshots and daily candles.
type MarketSource interface {
	FetchTickers(ctx context.Context) ([]models.TickerSnapshot, error)
	FetchDailyCandles(ctx context.Context, symbol string, limit int) ([]models.DailyCandle, error)
}

// StateStore is the generic key-value persistence collaborator. Values
// are JSON-serialized; Get returns (false, nil) when the key is absent.
type StateStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Notifier delivers a rendered alert to one recipient.
type Notifier interface {
	Send(ctx context.Context, chatID, text string) error
}

// EventSink receives signal events for external consumers.
type EventSink interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordSignal(kind, symbol string)
	RecordAlert(kind string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
