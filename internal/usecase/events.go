package usecase

import (
	"context"
	"sync"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	applogger "GoldenScan/pkg/logger"
)

// EventRouter forwards classification changes to the configured sink.
// Only transitions are published: a symbol holding the same kind across
// cycles emits nothing, a symbol dropping out of classification emits a
// NONE tombstone once.
type EventRouter struct {
	sink drepo.EventSink
	l    *applogger.Logger
	now  func() time.Time

	mu   sync.Mutex
	last map[string]models.SignalKind
}

const signalNone models.SignalKind = "NONE"

// NewEventRouter creates a router. A nil sink disables publishing.
func NewEventRouter(sink drepo.EventSink, logger *applogger.Logger) *EventRouter {
	return &EventRouter{
		sink: sink,
		l:    logger,
		now:  time.Now,
		last: make(map[string]models.SignalKind),
	}
}

// Route publishes events for every symbol whose classification changed
// this cycle. Publish failures are logged and do not affect scanning.
func (r *EventRouter) Route(ctx context.Context, signals []models.Signal) {
	if r.sink == nil {
		return
	}
	now := r.now().UTC()

	// Superseded cycles can still be finishing in here; keep the
	// transition map single-writer.
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]models.Signal, len(signals))
	for _, s := range signals {
		current[s.Symbol] = s
	}

	for sym, s := range current {
		if r.last[sym] == s.Kind {
			continue
		}
		r.publish(ctx, &models.SignalEvent{
			Symbol:    s.Symbol,
			Kind:      s.Kind,
			Score:     s.Score,
			Price:     s.Price,
			Reason:    s.Reason,
			EmittedAt: now,
		})
		r.last[sym] = s.Kind
	}

	for sym, kind := range r.last {
		if _, ok := current[sym]; ok || kind == signalNone {
			continue
		}
		r.publish(ctx, &models.SignalEvent{Symbol: sym, Kind: signalNone, EmittedAt: now})
		r.last[sym] = signalNone
	}
}

func (r *EventRouter) publish(ctx context.Context, ev *models.SignalEvent) {
	if err := r.sink.Publish(ctx, ev); err != nil && r.l != nil {
		r.l.Warn("event publish failed",
			applogger.String("symbol", ev.Symbol),
			applogger.String("kind", string(ev.Kind)),
			applogger.Error(err))
	}
}
