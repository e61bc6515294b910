package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	"GoldenScan/internal/services/classify"
	"GoldenScan/internal/services/levels"
	applogger "GoldenScan/pkg/logger"
)

// ScannerConfig holds the orchestration loop parameters.
type ScannerConfig struct {
	TickerInterval time.Duration
	EvalInterval   time.Duration
	ChunkSize      int
	ChunkDelay     time.Duration
	MaxCandidates  int
	MinQuoteVolume float64
}

// Scanner drives the two periodic loops: a fast ticker refresh and a
// slower full evaluation that recomputes levels, classifies every
// candidate and feeds the ledger, the alert dispatcher and the event
// router. A new evaluation supersedes any still-running one.
type Scanner struct {
	source     drepo.MarketSource
	levels     *levels.Calculator
	ledger     *Ledger
	dispatcher *Dispatcher
	events     *EventRouter
	metrics    drepo.Metrics
	l          *applogger.Logger
	cfg        ScannerConfig

	generation atomic.Uint64
	cancelEval context.CancelFunc

	mu      sync.RWMutex
	tickers []models.TickerSnapshot
	signals []models.Signal
	since   map[string]time.Time
}

// NewScanner wires the evaluation pipeline together.
func NewScanner(
	source drepo.MarketSource,
	calc *levels.Calculator,
	ledger *Ledger,
	dispatcher *Dispatcher,
	events *EventRouter,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	cfg ScannerConfig,
) *Scanner {
	return &Scanner{
		source:     source,
		levels:     calc,
		ledger:     ledger,
		dispatcher: dispatcher,
		events:     events,
		metrics:    metrics,
		l:          logger,
		cfg:        cfg,
		since:      make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled, executing the refresh and
// evaluation loops. The first cycle of each runs immediately.
func (s *Scanner) Run(ctx context.Context) {
	s.refreshTickers(ctx)
	s.startEvaluation(ctx)

	tickerTick := time.NewTicker(s.cfg.TickerInterval)
	evalTick := time.NewTicker(s.cfg.EvalInterval)
	defer tickerTick.Stop()
	defer evalTick.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.cancelEval != nil {
				s.cancelEval()
			}
			return
		case <-tickerTick.C:
			s.refreshTickers(ctx)
		case <-evalTick.C:
			s.startEvaluation(ctx)
		}
	}
}

// refreshTickers replaces the ticker snapshot. On source failure the
// previous snapshot stays in place.
func (s *Scanner) refreshTickers(ctx context.Context) {
	start := time.Now()
	tickers, err := s.source.FetchTickers(ctx)
	if s.metrics != nil {
		s.metrics.RecordLatency("refresh_tickers", time.Since(start).Seconds())
	}
	if err != nil {
		if s.l != nil {
			s.l.Warn("ticker refresh failed", applogger.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordError("source")
		}
		return
	}

	s.mu.Lock()
	s.tickers = tickers
	s.mu.Unlock()

	if s.metrics != nil {
		for _, t := range tickers {
			s.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

// startEvaluation cancels any in-flight evaluation and launches a new
// one carrying the next generation number.
func (s *Scanner) startEvaluation(ctx context.Context) {
	if s.cancelEval != nil {
		s.cancelEval()
	}
	evalCtx, cancel := context.WithCancel(ctx)
	s.cancelEval = cancel

	gen := s.generation.Add(1)
	go s.evaluate(evalCtx, gen)
}

func (s *Scanner) evaluate(ctx context.Context, gen uint64) {
	start := time.Now()

	candidates := s.candidates()
	signals, ok := s.classifyChunked(ctx, gen, candidates)
	if !ok {
		return // superseded or cancelled
	}

	now := time.Now().UTC()
	s.mu.Lock()
	signals = s.stampActiveSince(signals, now)
	classify.Sort(signals, classify.SortByScore)
	s.signals = signals
	tickers := s.tickers
	s.mu.Unlock()

	if s.metrics != nil {
		for _, sig := range signals {
			s.metrics.RecordSignal(string(sig.Kind), sig.Symbol)
		}
		s.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}

	s.ledger.Reconcile(ctx, signals, tickers)
	s.dispatcher.Dispatch(ctx, signals)
	s.events.Route(ctx, signals)

	if s.l != nil {
		s.l.Info("evaluation cycle complete",
			applogger.Int("candidates", len(candidates)),
			applogger.Int("signals", len(signals)),
			applogger.Duration("took", time.Since(start)))
	}
}

// candidates applies the liquidity floor and the candidate cap to the
// current ticker snapshot, which is already sorted by quote volume.
func (s *Scanner) candidates() []models.TickerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TickerSnapshot, 0, s.cfg.MaxCandidates)
	for _, t := range s.tickers {
		if t.QuoteVolume < s.cfg.MinQuoteVolume {
			continue
		}
		out = append(out, t)
		if len(out) == s.cfg.MaxCandidates {
			break
		}
	}
	return out
}

// classifyChunked computes levels and classifies candidates in bounded
// concurrent chunks with a delay between chunks. The second return is
// false when the evaluation was superseded or the context cancelled;
// an empty signal slice with true is a valid quiet-market result.
func (s *Scanner) classifyChunked(ctx context.Context, gen uint64, candidates []models.TickerSnapshot) ([]models.Signal, bool) {
	var (
		mu      sync.Mutex
		signals []models.Signal
	)

	for i := 0; i < len(candidates); i += s.cfg.ChunkSize {
		if ctx.Err() != nil || s.generation.Load() != gen {
			return nil, false
		}

		end := i + s.cfg.ChunkSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for _, t := range candidates[i:end] {
			wg.Add(1)
			go func(t models.TickerSnapshot) {
				defer wg.Done()
				ls, err := s.levels.ComputeLevels(ctx, t.Symbol)
				if err != nil {
					if !errors.Is(err, drepo.ErrInsufficientHistory) && !errors.Is(err, context.Canceled) {
						if s.l != nil {
							s.l.Debug("level computation failed",
								applogger.String("symbol", t.Symbol),
								applogger.Error(err))
						}
						if s.metrics != nil {
							s.metrics.RecordError("levels")
						}
					}
					return
				}
				if sig := classify.Classify(t, ls); sig != nil {
					mu.Lock()
					signals = append(signals, *sig)
					mu.Unlock()
				}
			}(t)
		}
		wg.Wait()

		if end < len(candidates) {
			select {
			case <-ctx.Done():
				return nil, false
			case <-time.After(s.cfg.ChunkDelay):
			}
		}
	}

	if ctx.Err() != nil || s.generation.Load() != gen {
		return nil, false
	}
	return signals, true
}

// stampActiveSince carries the first-seen time of each symbol+kind pair
// across cycles so signal age survives reclassification-free cycles.
// Caller holds s.mu.
func (s *Scanner) stampActiveSince(signals []models.Signal, now time.Time) []models.Signal {
	seen := make(map[string]time.Time, len(signals))
	for i := range signals {
		key := signals[i].Symbol + "|" + string(signals[i].Kind)
		if since, ok := s.since[key]; ok {
			signals[i].ActiveSince = since
		} else {
			signals[i].ActiveSince = now
		}
		seen[key] = signals[i].ActiveSince
	}
	s.since = seen
	return signals
}

// ApplyPriceUpdate overlays a live stream price onto the ticker
// snapshot between refresh cycles.
func (s *Scanner) ApplyPriceUpdate(symbol string, price float64) {
	s.mu.Lock()
	for i := range s.tickers {
		if s.tickers[i].Symbol == symbol {
			s.tickers[i].Price = price
			break
		}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordLastPrice(symbol, price)
	}
}

// Signals returns the latest classification snapshot, optionally
// filtered by kind and re-sorted.
func (s *Scanner) Signals(kind models.SignalKind, key classify.SortKey) []models.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		if kind != "" && sig.Kind != kind {
			continue
		}
		out = append(out, sig)
	}
	classify.Sort(out, key)
	return out
}

// Tickers returns the current ticker snapshot.
func (s *Scanner) Tickers() []models.TickerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TickerSnapshot, len(s.tickers))
	copy(out, s.tickers)
	return out
}
