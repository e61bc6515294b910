package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "GoldenScan/internal/domain/repository"
	"GoldenScan/internal/service/binance"
	"GoldenScan/internal/usecase"
	"GoldenScan/pkg/config"
	xhttp "GoldenScan/pkg/http"
	applogger "GoldenScan/pkg/logger"
)

// App encapsulates the application lifecycle: the scanner loops, the
// optional live price stream and the HTTP API.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	scanner    *usecase.Scanner
	ledger     *usecase.Ledger
	dispatcher *usecase.Dispatcher
	handler    xhttp.Handler
	stream     *binance.Stream
	store      drepo.StateStore
	sink       drepo.EventSink
	httpServer *xhttp.Server
}

// New creates the application with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	ledger *usecase.Ledger,
	dispatcher *usecase.Dispatcher,
	handler xhttp.Handler,
	stream *binance.Stream,
	store drepo.StateStore,
	sink drepo.EventSink,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		scanner:    scanner,
		ledger:     ledger,
		dispatcher: dispatcher,
		handler:    handler,
		stream:     stream,
		store:      store,
		sink:       sink,
	}
}

// Run starts everything and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restore persisted state before the first cycle.
	a.ledger.Load(ctx)
	a.dispatcher.LoadConfig(ctx)

	go a.scanner.Run(ctx)
	a.l.Info("scanner started",
		applogger.Duration("ticker_interval", a.cfg.Scanner.TickerInterval),
		applogger.Duration("eval_interval", a.cfg.Scanner.EvalInterval))

	if a.stream != nil {
		go a.runStream(ctx)
		a.l.Info("live price stream enabled", applogger.String("url", a.cfg.Stream.URL))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(cancel)
}

// runStream keeps the WebSocket feed alive and overlays its prices on
// the ticker snapshot, reconnecting until ctx is cancelled.
func (a *App) runStream(ctx context.Context) {
	if err := a.stream.Connect(ctx); err != nil {
		a.l.Warn("stream connect failed", applogger.Error(err))
	}

	for ctx.Err() == nil {
		if !a.stream.IsConnected() {
			if err := a.stream.Reconnect(ctx); err != nil {
				if ctx.Err() == nil {
					a.l.Warn("stream reconnect failed", applogger.Error(err))
				}
				continue
			}
		}

		updates, errs := a.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					break consume
				}
				a.scanner.ApplyPriceUpdate(u.Symbol, u.Price)
			case err := <-errs:
				a.l.Warn("stream read error", applogger.Error(err))
				break consume
			}
		}
		_ = a.stream.Close()
	}
}

// shutdown stops the loops and releases infrastructure clients.
func (a *App) shutdown(cancel context.CancelFunc) error {
	cancel()

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.l.Warn("stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer done()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.l.Warn("event sink close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.l.Warn("state store close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}
