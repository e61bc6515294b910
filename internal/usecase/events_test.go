package usecase

import (
	"context"
	"sync"
	"testing"

	"GoldenScan/internal/domain/models"
)

type fakeSink struct {
	mu     sync.Mutex
	events []models.SignalEvent
}

func (f *fakeSink) Publish(_ context.Context, ev *models.SignalEvent) error {
	f.mu.Lock()
	f.events = append(f.events, *ev)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestRoutePublishesOnlyTransitions(t *testing.T) {
	sink := &fakeSink{}
	r := NewEventRouter(sink, nil)

	golden := []models.Signal{goldenSignal("BTCUSDT", 100)}
	r.Route(context.Background(), golden)
	r.Route(context.Background(), golden)
	r.Route(context.Background(), []models.Signal{exitSignal("BTCUSDT", 95)})

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events (golden, exit), got %d", len(sink.events))
	}
	if sink.events[0].Kind != models.SignalGolden || sink.events[1].Kind != models.SignalExit {
		t.Fatalf("unexpected event kinds: %+v", sink.events)
	}
}

func TestRouteEmitsTombstoneOnce(t *testing.T) {
	sink := &fakeSink{}
	r := NewEventRouter(sink, nil)

	r.Route(context.Background(), []models.Signal{goldenSignal("BTCUSDT", 100)})
	r.Route(context.Background(), nil)
	r.Route(context.Background(), nil)

	if len(sink.events) != 2 {
		t.Fatalf("expected golden + one NONE tombstone, got %d events", len(sink.events))
	}
	if sink.events[1].Kind != signalNone {
		t.Fatalf("second event kind = %s, want NONE", sink.events[1].Kind)
	}
}

func TestRouteWithNilSinkIsNoop(t *testing.T) {
	r := NewEventRouter(nil, nil)
	r.Route(context.Background(), []models.Signal{goldenSignal("BTCUSDT", 100)})
}

// A superseded evaluation can still be inside Route while the next
// cycle enters it; the transition map must serialize them.
func TestRouteSerializesOverlappingCycles(t *testing.T) {
	sink := &fakeSink{}
	r := NewEventRouter(sink, nil)
	golden := []models.Signal{goldenSignal("BTCUSDT", 100)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Route(context.Background(), golden)
		}()
	}
	wg.Wait()

	if len(sink.events) != 1 {
		t.Fatalf("expected a single golden event across overlapping cycles, got %d", len(sink.events))
	}
}
