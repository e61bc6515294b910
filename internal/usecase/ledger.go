package usecase

import (
	"context"
	"sync"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	applogger "GoldenScan/pkg/logger"
)

// State store keys owned by the ledger.
const (
	stateKeyEntries = "ledger:entries"
	stateKeyStats   = "ledger:stats"
)

// LedgerConfig holds the outcome-tracking parameters.
type LedgerConfig struct {
	TakeProfitPct  float64       // unrealized gain that closes an entry as a success
	Retention      time.Duration // entries older than this are purged outright
	SampleInterval time.Duration // price history sampling cadence
	MaxSamples     int           // bounded history buffer length
}

// Ledger owns the golden-signal occurrence registry. Entries are mutated
// only inside Reconcile, which the scanner calls once per evaluation
// cycle; all read paths receive copies.
//
// Closure policy: take-profit closes an entry as a success; a current
// EXIT classification closes it as invalidated. Take-profit is checked
// first. Losing the GOLDEN classification alone does not close anything.
type Ledger struct {
	store   drepo.StateStore
	metrics drepo.Metrics
	l       *applogger.Logger
	cfg     LedgerConfig
	now     func() time.Time

	mu      sync.RWMutex
	entries []*models.TrackedSignal
	stats   models.GoldenStats
}

// LedgerOption configures the ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the time source (used by tests).
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger persisting through store.
func NewLedger(store drepo.StateStore, metrics drepo.Metrics, logger *applogger.Logger, cfg LedgerConfig, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:   store,
		metrics: metrics,
		l:       logger,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load restores persisted entries and stats. Absent or malformed records
// yield safe defaults; persistence failures are never fatal.
func (l *Ledger) Load(ctx context.Context) {
	var entries []*models.TrackedSignal
	if _, err := l.store.Get(ctx, stateKeyEntries, &entries); err != nil {
		l.warn("ledger load entries failed", err)
		entries = nil
	}
	var stats models.GoldenStats
	if _, err := l.store.Get(ctx, stateKeyStats, &stats); err != nil {
		l.warn("ledger load stats failed", err)
		stats = models.GoldenStats{}
	}

	now := l.now().UTC()
	l.mu.Lock()
	l.entries = l.unexpired(entries, now)
	l.stats = stats
	l.mu.Unlock()
}

// Reconcile folds the current cycle's signals and tickers into the
// registry and persists the result. Returns a read-only snapshot.
func (l *Ledger) Reconcile(ctx context.Context, signals []models.Signal, tickers []models.TickerSnapshot) []models.TrackedSignal {
	now := l.now().UTC()

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		prices[t.Symbol] = t.Price
	}
	golden := make(map[string]float64)
	exits := make(map[string]struct{})
	for _, s := range signals {
		switch s.Kind {
		case models.SignalGolden:
			golden[s.Symbol] = s.Price
		case models.SignalExit:
			exits[s.Symbol] = struct{}{}
		}
	}

	l.mu.Lock()

	open := make(map[string]*models.TrackedSignal)
	for _, e := range l.entries {
		if e.StillActive {
			open[e.Symbol] = e
		}
	}

	// Update open entries. Symbols missing from the feed stay frozen
	// until they age out.
	for sym, e := range open {
		price, ok := prices[sym]
		if !ok {
			continue
		}
		e.LastPrice = price
		if price > e.MaxPriceSeen {
			e.MaxPriceSeen = price
		}
		if gain := e.GainPct(price); gain > e.MaxGainPct {
			e.MaxGainPct = gain
		}
		l.sample(e, now, price)

		if gain := e.GainPct(price); gain >= l.cfg.TakeProfitPct {
			l.close(e, now, price, gain, true)
			l.stats.SuccessCount++
		} else if _, exit := exits[sym]; exit {
			l.close(e, now, price, gain, false)
		}
	}

	// Open a fresh entry for every GOLDEN symbol without one.
	for sym, price := range golden {
		if e, ok := open[sym]; ok && e.StillActive {
			continue
		}
		if price <= 0 {
			price = prices[sym]
		}
		if price <= 0 {
			continue
		}
		entry := &models.TrackedSignal{
			Symbol:             sym,
			EntryPrice:         price,
			SignalTime:         now,
			MaxPriceSeen:       price,
			LastPrice:          price,
			StillActive:        true,
			PriceHistorySample: []models.PricePoint{{Time: now, Price: price}},
		}
		l.entries = append(l.entries, entry)
		l.stats.TotalSignals++
	}

	// Purge aged entries before persisting, open or closed alike.
	l.entries = l.unexpired(l.entries, now)

	snapshot := l.copyEntries(now)
	entries := l.entries
	stats := l.stats
	l.mu.Unlock()

	l.persist(ctx, entries, stats)
	return snapshot
}

// View returns copies of all unexpired entries. The age filter applies
// at read time too, so entries never outlive the retention window even
// when no reconcile has run in a while.
func (l *Ledger) View() []models.TrackedSignal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyEntries(l.now().UTC())
}

// Stats returns the aggregate counters.
func (l *Ledger) Stats() models.GoldenStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// ResetStats zeroes the aggregate counters and persists them.
func (l *Ledger) ResetStats(ctx context.Context) {
	l.mu.Lock()
	l.stats = models.GoldenStats{}
	stats := l.stats
	entries := l.entries
	l.mu.Unlock()
	l.persist(ctx, entries, stats)
}

func (l *Ledger) sample(e *models.TrackedSignal, now time.Time, price float64) {
	n := len(e.PriceHistorySample)
	if n > 0 && now.Sub(e.PriceHistorySample[n-1].Time) < l.cfg.SampleInterval {
		return
	}
	e.PriceHistorySample = append(e.PriceHistorySample, models.PricePoint{Time: now, Price: price})
	if l.cfg.MaxSamples > 0 && len(e.PriceHistorySample) > l.cfg.MaxSamples {
		e.PriceHistorySample = e.PriceHistorySample[len(e.PriceHistorySample)-l.cfg.MaxSamples:]
	}
}

func (l *Ledger) close(e *models.TrackedSignal, now time.Time, price, gain float64, tp bool) {
	exit := now
	e.StillActive = false
	e.ExitPrice = price
	e.ExitTime = &exit
	e.RealizedPnlPct = gain
	e.TPHit = tp
}

func (l *Ledger) unexpired(entries []*models.TrackedSignal, now time.Time) []*models.TrackedSignal {
	kept := entries[:0:0]
	for _, e := range entries {
		if e.Age(now) <= l.cfg.Retention {
			kept = append(kept, e)
		}
	}
	return kept
}

func (l *Ledger) copyEntries(now time.Time) []models.TrackedSignal {
	out := make([]models.TrackedSignal, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Age(now) > l.cfg.Retention {
			continue
		}
		c := *e
		c.PriceHistorySample = append([]models.PricePoint(nil), e.PriceHistorySample...)
		out = append(out, c)
	}
	return out
}

func (l *Ledger) persist(ctx context.Context, entries []*models.TrackedSignal, stats models.GoldenStats) {
	if err := l.store.Set(ctx, stateKeyEntries, entries); err != nil {
		l.warn("ledger persist entries failed", err)
		if l.metrics != nil {
			l.metrics.RecordError("persist")
		}
	}
	if err := l.store.Set(ctx, stateKeyStats, stats); err != nil {
		l.warn("ledger persist stats failed", err)
		if l.metrics != nil {
			l.metrics.RecordError("persist")
		}
	}
}

func (l *Ledger) warn(msg string, err error) {
	if l.l != nil {
		l.l.Warn(msg, applogger.Error(err))
	}
}
