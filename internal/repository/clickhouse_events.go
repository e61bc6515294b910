package repository

import (
	"context"
	"fmt"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	"GoldenScan/pkg/clickhouse"
)

const signalEventsDDL = `
CREATE TABLE IF NOT EXISTS signal_events (
    symbol     LowCardinality(String),
    kind       LowCardinality(String),
    score      Float64,
    price      Float64,
    reason     String,
    emitted_at DateTime64(3, 'UTC')
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(emitted_at)
ORDER BY (symbol, emitted_at)`

// ClickHouseEventSink appends signal events to an analytical history
// table.
type ClickHouseEventSink struct {
	client *clickhouse.Client
}

// NewClickHouseEventSink ensures the events table exists and returns the
// sink.
func NewClickHouseEventSink(ctx context.Context, client *clickhouse.Client) (*ClickHouseEventSink, error) {
	if err := client.InitSchema(ctx, []string{signalEventsDDL}); err != nil {
		return nil, fmt.Errorf("signal events schema: %w", err)
	}
	return &ClickHouseEventSink{client: client}, nil
}

var _ drepo.EventSink = (*ClickHouseEventSink)(nil)

func (s *ClickHouseEventSink) Publish(ctx context.Context, ev *models.SignalEvent) error {
	const q = `INSERT INTO signal_events (symbol, kind, score, price, reason, emitted_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.client.DB().ExecContext(ctx, q,
		ev.Symbol, string(ev.Kind), ev.Score, ev.Price, ev.Reason, ev.EmittedAt); err != nil {
		return fmt.Errorf("insert signal event: %w", err)
	}
	return nil
}

func (s *ClickHouseEventSink) Close() error {
	return s.client.Close()
}
