package usecase

import (
	"context"
	"testing"
	"time"

	"GoldenScan/internal/domain/models"
	"GoldenScan/internal/repository"
)

func testLedgerConfig() LedgerConfig {
	return LedgerConfig{
		TakeProfitPct:  4.0,
		Retention:      24 * time.Hour,
		SampleInterval: 10 * time.Minute,
		MaxSamples:     144,
	}
}

func ledgerAt(store *repository.MemoryStateStore, at *time.Time) *Ledger {
	return NewLedger(store, nil, nil, testLedgerConfig(), WithLedgerClock(func() time.Time { return *at }))
}

func goldenSignal(symbol string, price float64) models.Signal {
	return models.Signal{Symbol: symbol, Kind: models.SignalGolden, Price: price, Score: 95}
}

func exitSignal(symbol string, price float64) models.Signal {
	return models.Signal{Symbol: symbol, Kind: models.SignalExit, Price: price, Score: 90}
}

func ticker(symbol string, price float64) models.TickerSnapshot {
	return models.TickerSnapshot{Symbol: symbol, Price: price}
}

func TestReconcileOpensEntryOnGolden(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	entries := l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 110)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 110)})

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Symbol != "BTCUSDT" || e.EntryPrice != 110 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.StillActive {
		t.Fatal("fresh entry should be open")
	}
	if !e.SignalTime.Equal(now) {
		t.Fatalf("signal time = %v, want %v", e.SignalTime, now)
	}
	if got := l.Stats(); got.TotalSignals != 1 || got.SuccessCount != 0 {
		t.Fatalf("stats = %+v", got)
	}
}

func TestReconcileIsIdempotentForUnchangedInputs(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	signals := []models.Signal{goldenSignal("BTCUSDT", 100)}
	tickers := []models.TickerSnapshot{ticker("BTCUSDT", 100)}

	first := l.Reconcile(context.Background(), signals, tickers)
	second := l.Reconcile(context.Background(), signals, tickers)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected single entry after both cycles, got %d then %d", len(first), len(second))
	}
	if second[0].EntryPrice != 100 || second[0].MaxGainPct != 0 {
		t.Fatalf("entry changed across identical cycles: %+v", second[0])
	}
	if got := l.Stats(); got.TotalSignals != 1 {
		t.Fatalf("total signals = %d, want 1", got.TotalSignals)
	}
	if len(second[0].PriceHistorySample) != 1 {
		t.Fatalf("sample count = %d, want 1 inside sampling interval", len(second[0].PriceHistorySample))
	}
}

func TestReconcileClosesAtTakeProfitBoundary(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100)})

	now = now.Add(time.Hour)
	entries := l.Reconcile(context.Background(), nil,
		[]models.TickerSnapshot{ticker("BTCUSDT", 103.99)})
	if !entries[0].StillActive {
		t.Fatal("gain below threshold must not close the entry")
	}

	now = now.Add(time.Hour)
	entries = l.Reconcile(context.Background(), nil,
		[]models.TickerSnapshot{ticker("BTCUSDT", 104)})
	e := entries[0]
	if e.StillActive {
		t.Fatal("gain at threshold must close the entry")
	}
	if !e.TPHit {
		t.Fatal("expected take-profit flag on closed entry")
	}
	if e.RealizedPnlPct < 3.999 || e.RealizedPnlPct > 4.001 {
		t.Fatalf("realized pnl = %v, want 4.0", e.RealizedPnlPct)
	}
	if e.ExitTime == nil || !e.ExitTime.Equal(now) {
		t.Fatalf("exit time = %v, want %v", e.ExitTime, now)
	}
	if got := l.Stats(); got.SuccessCount != 1 {
		t.Fatalf("success count = %d, want 1", got.SuccessCount)
	}
}

func TestReconcileExitSignalInvalidatesWithoutSuccess(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100)})

	now = now.Add(time.Hour)
	entries := l.Reconcile(context.Background(),
		[]models.Signal{exitSignal("BTCUSDT", 98)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 98)})

	e := entries[0]
	if e.StillActive {
		t.Fatal("exit classification must close the entry")
	}
	if e.TPHit {
		t.Fatal("invalidated closure must not set the take-profit flag")
	}
	if e.RealizedPnlPct >= 0 {
		t.Fatalf("realized pnl = %v, want negative", e.RealizedPnlPct)
	}
	if got := l.Stats(); got.SuccessCount != 0 {
		t.Fatalf("success count = %d, want 0", got.SuccessCount)
	}
}

func TestReconcileFreezesEntriesMissingFromFeed(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100)})

	now = now.Add(time.Hour)
	entries := l.Reconcile(context.Background(), nil,
		[]models.TickerSnapshot{ticker("ETHUSDT", 3000)})

	e := entries[0]
	if !e.StillActive || e.LastPrice != 100 {
		t.Fatalf("missing symbol must stay frozen: %+v", e)
	}
}

func TestReconcilePurgesExpiredEntries(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100)})

	now = now.Add(25 * time.Hour)
	entries := l.Reconcile(context.Background(), nil,
		[]models.TickerSnapshot{ticker("BTCUSDT", 101)})

	if len(entries) != 0 {
		t.Fatalf("expired entry must be purged, got %d entries", len(entries))
	}
	if got := l.Stats(); got.TotalSignals != 1 {
		t.Fatalf("purge must not touch counters, total = %d", got.TotalSignals)
	}
}

func TestViewFiltersExpiredWithoutReconcile(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	l := ledgerAt(repository.NewMemoryStateStore(), &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100)})

	// No reconcile runs after the clock passes the retention window;
	// the read view must filter by age on its own.
	now = now.Add(25 * time.Hour)
	if got := l.View(); len(got) != 0 {
		t.Fatalf("expired entry served by read view: %+v", got)
	}
}

func TestLedgerPersistsAndReloads(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStateStore()
	l := ledgerAt(store, &now)

	l.Reconcile(context.Background(),
		[]models.Signal{goldenSignal("BTCUSDT", 100), goldenSignal("ETHUSDT", 3000)},
		[]models.TickerSnapshot{ticker("BTCUSDT", 100), ticker("ETHUSDT", 3000)})

	reloaded := ledgerAt(store, &now)
	reloaded.Load(context.Background())

	entries := reloaded.View()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", len(entries))
	}
	if got := reloaded.Stats(); got.TotalSignals != 2 {
		t.Fatalf("stats lost across reload: %+v", got)
	}

	// Entries past retention disappear on reload as well.
	now = now.Add(25 * time.Hour)
	stale := ledgerAt(store, &now)
	stale.Load(context.Background())
	if got := stale.View(); len(got) != 0 {
		t.Fatalf("expired entries must not survive reload, got %d", len(got))
	}
}
