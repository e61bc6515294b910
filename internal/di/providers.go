package di

import (
	"context"
	"fmt"
	"time"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	"GoldenScan/internal/handler/api"
	internalrepo "GoldenScan/internal/repository"
	"GoldenScan/internal/service/binance"
	"GoldenScan/internal/service/telegram"
	"GoldenScan/internal/services/levels"
	"GoldenScan/internal/usecase"
	pkgch "GoldenScan/pkg/clickhouse"
	"GoldenScan/pkg/config"
	pkgkafka "GoldenScan/pkg/kafka"
	applogger "GoldenScan/pkg/logger"
	"GoldenScan/pkg/metrics"
	"GoldenScan/pkg/server"
	"GoldenScan/pkg/util"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideStateStore selects the persistence backend: Redis when
// configured, otherwise in-process memory.
func ProvideStateStore(cfg *config.Config, l *applogger.Logger) (drepo.StateStore, error) {
	if !cfg.Redis.Enabled {
		l.Info("state store: in-memory (redis disabled)")
		return internalrepo.NewMemoryStateStore(), nil
	}

	store, err := internalrepo.NewRedisStateStore(
		internalrepo.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		internalrepo.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		internalrepo.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis state store: %w", err)
	}
	l.Info("state store: redis", applogger.String("host", cfg.Redis.Host))
	return store, nil
}

// ProvideMarketSource creates the Binance REST client.
func ProvideMarketSource(cfg *config.Config, l *applogger.Logger) drepo.MarketSource {
	return binance.New(
		cfg.Source.PrimaryURL,
		cfg.Source.SecondaryURL,
		cfg.Source.QuoteAsset,
		cfg.Source.StableAssets,
		cfg.Source.TopK,
		cfg.Source.TickerTTL,
		binance.WithLogger(l),
		binance.WithRequestLimit(cfg.Source.RequestBurst, cfg.Source.RequestRate),
	)
}

// ProvideNotifier creates the Telegram notifier.
func ProvideNotifier(cfg *config.Config) drepo.Notifier {
	return telegram.New(cfg.Alerts.BotToken)
}

// ProvideEventSink creates the configured event backend, or nil when
// events are disabled.
func ProvideEventSink(cfg *config.Config) (drepo.EventSink, error) {
	switch cfg.Events.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Events.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Events.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Events.Kafka.RequiredAcks),
			pkgkafka.WithWriteTimeout(cfg.Events.Kafka.WriteTimeout),
			pkgkafka.WithAsync(cfg.Events.Kafka.Async),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaEventSink(producer, cfg.Events.Topic), nil

	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Events.ClickHouse.Host),
			pkgch.WithPort(cfg.Events.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Events.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Events.ClickHouse.User, cfg.Events.ClickHouse.Password),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sink, err := internalrepo.NewClickHouseEventSink(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return sink, nil

	default:
		return nil, nil
	}
}

// ProvideLevelCalculator creates the level derivation service.
func ProvideLevelCalculator(source drepo.MarketSource, cfg *config.Config) *levels.Calculator {
	return levels.New(source, cfg.Scanner.LevelTTL, cfg.Source.CandleLimit)
}

// ProvideLedger creates the golden-signal ledger.
func ProvideLedger(store drepo.StateStore, m drepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.Ledger {
	return usecase.NewLedger(store, m, l, usecase.LedgerConfig{
		TakeProfitPct:  cfg.Ledger.TakeProfitPct,
		Retention:      cfg.Ledger.Retention,
		SampleInterval: cfg.Ledger.SampleInterval,
		MaxSamples:     cfg.Ledger.MaxSamples,
	})
}

// ProvideDispatcher creates the alert dispatcher seeded from the static
// config; a persisted runtime config overrides it on startup.
func ProvideDispatcher(n drepo.Notifier, store drepo.StateStore, m drepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.Dispatcher {
	return usecase.NewDispatcher(n, store, m, l, models.AlertConfig{
		BotToken: cfg.Alerts.BotToken,
		ChatIDs:  util.SplitCSV(cfg.Alerts.ChatIDs),
		Enabled:  cfg.Alerts.Enabled,
	})
}

// ProvideEventRouter creates the classification-change event router.
func ProvideEventRouter(sink drepo.EventSink, l *applogger.Logger) *usecase.EventRouter {
	return usecase.NewEventRouter(sink, l)
}

// ProvideScanner creates the orchestration loop.
func ProvideScanner(
	source drepo.MarketSource,
	calc *levels.Calculator,
	ledger *usecase.Ledger,
	dispatcher *usecase.Dispatcher,
	events *usecase.EventRouter,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Scanner {
	return usecase.NewScanner(source, calc, ledger, dispatcher, events, m, l, usecase.ScannerConfig{
		TickerInterval: cfg.Scanner.TickerInterval,
		EvalInterval:   cfg.Scanner.EvalInterval,
		ChunkSize:      cfg.Scanner.ChunkSize,
		ChunkDelay:     cfg.Scanner.ChunkDelay,
		MaxCandidates:  cfg.Scanner.MaxCandidates,
		MinQuoteVolume: cfg.Scanner.MinQuoteVolume,
	})
}

// ProvidePreferenceStore creates the preference persistence layer.
func ProvidePreferenceStore(store drepo.StateStore) *usecase.PreferenceStore {
	return usecase.NewPreferenceStore(store)
}

// ProvideStream creates the live price stream, or nil when disabled.
func ProvideStream(cfg *config.Config) *binance.Stream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return binance.NewStream(cfg.Stream.URL, cfg.Stream.ReconnectDelay, cfg.Stream.PingInterval)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	l *applogger.Logger,
	scanner *usecase.Scanner,
	ledger *usecase.Ledger,
	dispatcher *usecase.Dispatcher,
	prefs *usecase.PreferenceStore,
) *api.ScannerEchoHandler {
	return api.NewScannerEchoHandler(l, scanner, ledger, dispatcher, prefs)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	ledger *usecase.Ledger,
	dispatcher *usecase.Dispatcher,
	handler *api.ScannerEchoHandler,
	stream *binance.Stream,
	store drepo.StateStore,
	sink drepo.EventSink,
) *server.App {
	return server.New(cfg, l, scanner, ledger, dispatcher, handler, stream, store, sink)
}
