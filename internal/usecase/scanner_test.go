package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"GoldenScan/internal/domain/models"
	"GoldenScan/internal/repository"
	"GoldenScan/internal/services/classify"
	"GoldenScan/internal/services/levels"
)

type stubMarket struct {
	mu      sync.Mutex
	tickers []models.TickerSnapshot
	candles map[string][]models.DailyCandle
	fetches map[string]int
}

func (m *stubMarket) FetchTickers(context.Context) ([]models.TickerSnapshot, error) {
	return m.tickers, nil
}

func (m *stubMarket) FetchDailyCandles(_ context.Context, symbol string, _ int) ([]models.DailyCandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetches == nil {
		m.fetches = make(map[string]int)
	}
	m.fetches[symbol]++
	return m.candles[symbol], nil
}

// breakoutSeries builds 30 daily candles whose weekly VWAP max sits at
// 110 while the live day trades at 120 with a strong rising slope, so
// any price above 110 classifies as GOLDEN.
func breakoutSeries(now time.Time) []models.DailyCandle {
	day := now.Truncate(24 * time.Hour)
	out := make([]models.DailyCandle, 30)
	for i := range out {
		vwap := 100.0
		switch i {
		case 27: // Monday of the current week
			vwap = 110
		case 28: // Tuesday
			vwap = 105
		case 29: // live day
			vwap = 120
		}
		out[i] = models.DailyCandle{
			OpenTime:    day.AddDate(0, 0, i-29),
			Open:        vwap,
			High:        vwap + 5,
			Low:         vwap - 5,
			Close:       vwap,
			BaseVolume:  1,
			QuoteVolume: vwap,
		}
	}
	return out
}

func newTestScanner(src *stubMarket, n *fakeNotifier, now time.Time) *Scanner {
	calc := levels.New(src, time.Minute, 30, levels.WithClock(func() time.Time { return now }))
	store := repository.NewMemoryStateStore()
	ledger := NewLedger(store, nil, nil, testLedgerConfig())
	dispatcher := NewDispatcher(n, store, nil, nil, models.AlertConfig{
		BotToken: "t", ChatIDs: []string{"111"}, Enabled: true,
	})
	return NewScanner(src, calc, ledger, dispatcher, NewEventRouter(nil, nil), nil, nil, ScannerConfig{
		TickerInterval: time.Minute,
		EvalInterval:   2 * time.Minute,
		ChunkSize:      10,
		ChunkDelay:     time.Millisecond,
		MaxCandidates:  100,
		MinQuoteVolume: 1000,
	})
}

func TestEvaluateProducesGoldenSignalAndLedgerEntry(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC) // Wednesday
	src := &stubMarket{
		tickers: []models.TickerSnapshot{
			{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9},
			{Symbol: "THINUSDT", Price: 50, QuoteVolume: 10}, // below liquidity floor
		},
		candles: map[string][]models.DailyCandle{
			"GOODUSDT": breakoutSeries(now),
		},
	}
	n := &fakeNotifier{}
	s := newTestScanner(src, n, now)

	ctx := context.Background()
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))

	signals := s.Signals("", classify.SortByScore)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].Kind != models.SignalGolden || signals[0].Symbol != "GOODUSDT" {
		t.Fatalf("unexpected signal: %+v", signals[0])
	}

	entries := s.ledger.View()
	if len(entries) != 1 || entries[0].EntryPrice != 130 || !entries[0].StillActive {
		t.Fatalf("unexpected ledger state: %+v", entries)
	}

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 alert delivery, got %d", len(n.sent))
	}

	if src.fetches["THINUSDT"] != 0 {
		t.Fatal("symbol below the liquidity floor must not be evaluated")
	}
}

func TestEvaluateHonorsCandidateCap(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{
			{Symbol: "AUSDT", Price: 130, QuoteVolume: 2e9},
			{Symbol: "BUSDT", Price: 130, QuoteVolume: 1e9},
		},
		candles: map[string][]models.DailyCandle{
			"AUSDT": breakoutSeries(now),
			"BUSDT": breakoutSeries(now),
		},
	}
	s := newTestScanner(src, &fakeNotifier{}, now)
	s.cfg.MaxCandidates = 1

	ctx := context.Background()
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))

	if src.fetches["AUSDT"] != 1 || src.fetches["BUSDT"] != 0 {
		t.Fatalf("cap must keep only the highest-volume symbol: %v", src.fetches)
	}
}

func TestEvaluateSupersededPublishesNothing(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}},
		candles: map[string][]models.DailyCandle{"GOODUSDT": breakoutSeries(now)},
	}
	n := &fakeNotifier{}
	s := newTestScanner(src, n, now)

	ctx := context.Background()
	s.refreshTickers(ctx)
	stale := s.generation.Add(1)
	s.generation.Add(1) // a newer evaluation started
	s.evaluate(ctx, stale)

	if got := s.Signals("", classify.SortByScore); len(got) != 0 {
		t.Fatalf("superseded evaluation must not publish a snapshot, got %d signals", len(got))
	}
	if len(n.sent) != 0 {
		t.Fatalf("superseded evaluation must not alert, got %d sends", len(n.sent))
	}
}

// flatSeries builds 30 daily candles with no trend, so the symbol
// classifies to nothing at its own VWAP.
func flatSeries(now time.Time) []models.DailyCandle {
	day := now.Truncate(24 * time.Hour)
	out := make([]models.DailyCandle, 30)
	for i := range out {
		out[i] = models.DailyCandle{
			OpenTime:    day.AddDate(0, 0, i-29),
			Open:        100,
			High:        105,
			Low:         95,
			Close:       100,
			BaseVolume:  1,
			QuoteVolume: 100,
		}
	}
	return out
}

func TestEvaluateQuietCycleClearsSnapshotAndRearms(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}},
		candles: map[string][]models.DailyCandle{
			"GOODUSDT": breakoutSeries(now),
			"FLATUSDT": flatSeries(now),
		},
	}
	n := &fakeNotifier{}
	s := newTestScanner(src, n, now)

	ctx := context.Background()
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))
	if len(s.Signals("", classify.SortByScore)) != 1 || len(n.sent) != 1 {
		t.Fatal("expected one golden signal and one alert before the quiet cycle")
	}

	// Quiet cycle: the golden symbol leaves the feed and the only
	// remaining candidate classifies to nothing.
	src.tickers = []models.TickerSnapshot{{Symbol: "FLATUSDT", Price: 100, QuoteVolume: 1e9}}
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))

	if got := s.Signals("", classify.SortByScore); len(got) != 0 {
		t.Fatalf("quiet cycle must clear the snapshot, got %+v", got)
	}

	// The quiet cycle re-armed the delivery mark, so the signal's
	// return alerts again.
	src.tickers = []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}}
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))
	if len(n.sent) != 2 {
		t.Fatalf("expected a second alert after re-arm, got %d", len(n.sent))
	}
}

func TestEvaluateRunsLedgerWithNoCandidates(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}},
		candles: map[string][]models.DailyCandle{"GOODUSDT": breakoutSeries(now)},
	}
	s := newTestScanner(src, &fakeNotifier{}, now)

	ctx := context.Background()
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))

	// Everything drops below the liquidity floor; the cycle still
	// replaces the snapshot and reconciles the ledger.
	src.tickers = []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 131, QuoteVolume: 10}}
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))

	if got := s.Signals("", classify.SortByScore); len(got) != 0 {
		t.Fatalf("no-candidate cycle must clear the snapshot, got %+v", got)
	}
	entries := s.ledger.View()
	if len(entries) != 1 || entries[0].LastPrice != 131 {
		t.Fatalf("ledger must still reconcile on a no-candidate cycle: %+v", entries)
	}
}

func TestEvaluateCarriesActiveSinceAcrossCycles(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}},
		candles: map[string][]models.DailyCandle{"GOODUSDT": breakoutSeries(now)},
	}
	s := newTestScanner(src, &fakeNotifier{}, now)

	ctx := context.Background()
	s.refreshTickers(ctx)
	s.evaluate(ctx, s.generation.Add(1))
	first := s.Signals("", classify.SortByScore)[0].ActiveSince

	time.Sleep(5 * time.Millisecond)
	s.evaluate(ctx, s.generation.Add(1))
	second := s.Signals("", classify.SortByScore)[0].ActiveSince

	if !second.Equal(first) {
		t.Fatalf("active since must survive unchanged classification: %v vs %v", first, second)
	}
}

func TestApplyPriceUpdateOverlaysTicker(t *testing.T) {
	now := time.Date(2024, 10, 9, 12, 0, 0, 0, time.UTC)
	src := &stubMarket{
		tickers: []models.TickerSnapshot{{Symbol: "GOODUSDT", Price: 130, QuoteVolume: 1e9}},
	}
	s := newTestScanner(src, &fakeNotifier{}, now)

	s.refreshTickers(context.Background())
	s.ApplyPriceUpdate("GOODUSDT", 131.5)

	if got := s.Tickers()[0].Price; got != 131.5 {
		t.Fatalf("price = %v, want 131.5", got)
	}
}
