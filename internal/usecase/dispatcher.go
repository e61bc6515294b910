package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
	applogger "GoldenScan/pkg/logger"
)

const stateKeyAlertConfig = "alerts:config"

// ErrNotConfigured is returned when a send is requested before a bot
// token and at least one chat id have been set.
var ErrNotConfigured = errors.New("alerts not configured")

// TokenSetter is implemented by notifiers whose credential can be
// swapped at runtime.
type TokenSetter interface {
	SetToken(token string)
}

// Dispatcher routes GOLDEN and EXIT signals to Telegram recipients.
// Each symbol+kind pair is delivered once per continuous occurrence: a
// delivery mark is set only after at least one recipient accepted the
// message, and cleared when the symbol's classification changes.
type Dispatcher struct {
	notifier drepo.Notifier
	store    drepo.StateStore
	metrics  drepo.Metrics
	l        *applogger.Logger

	mu   sync.Mutex
	sent map[string]struct{}
	cfg  models.AlertConfig
}

// NewDispatcher creates a dispatcher with the given startup config.
func NewDispatcher(notifier drepo.Notifier, store drepo.StateStore, metrics drepo.Metrics, logger *applogger.Logger, cfg models.AlertConfig) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		store:    store,
		metrics:  metrics,
		l:        logger,
		sent:     make(map[string]struct{}),
		cfg:      cfg,
	}
}

// LoadConfig restores a persisted alert config, keeping the startup
// config when none was saved.
func (d *Dispatcher) LoadConfig(ctx context.Context) {
	var saved models.AlertConfig
	ok, err := d.store.Get(ctx, stateKeyAlertConfig, &saved)
	if err != nil {
		if d.l != nil {
			d.l.Warn("alert config load failed", applogger.Error(err))
		}
		return
	}
	if !ok {
		return
	}
	d.mu.Lock()
	d.cfg = saved
	d.mu.Unlock()
	d.applyToken(saved.BotToken)
}

// Config returns the current alert configuration.
func (d *Dispatcher) Config() models.AlertConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// SetConfig replaces the alert configuration and persists it.
func (d *Dispatcher) SetConfig(ctx context.Context, cfg models.AlertConfig) error {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.applyToken(cfg.BotToken)
	if err := d.store.Set(ctx, stateKeyAlertConfig, cfg); err != nil {
		return fmt.Errorf("persist alert config: %w", err)
	}
	return nil
}

// SendTest delivers a test message to every configured recipient and
// reports the first failure.
func (d *Dispatcher) SendTest(ctx context.Context, text string) error {
	cfg := d.Config()
	if cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return ErrNotConfigured
	}
	var firstErr error
	for _, chatID := range cfg.ChatIDs {
		if err := d.notifier.Send(ctx, chatID, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dispatch delivers alerts for the cycle's signals. Non-alertable kinds
// re-arm their symbol's delivery mark.
func (d *Dispatcher) Dispatch(ctx context.Context, signals []models.Signal) {
	cfg := d.Config()

	current := make(map[string]models.Signal)
	for _, s := range signals {
		if s.Kind == models.SignalGolden || s.Kind == models.SignalExit {
			current[alertKey(s.Symbol, s.Kind)] = s
		}
	}

	d.mu.Lock()
	for key := range d.sent {
		if _, ok := current[key]; !ok {
			delete(d.sent, key)
		}
	}
	pending := make([]models.Signal, 0, len(current))
	for key, s := range current {
		if _, ok := d.sent[key]; !ok {
			pending = append(pending, s)
		}
	}
	d.mu.Unlock()

	if !cfg.Enabled || cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return
	}

	for _, s := range pending {
		if d.deliver(ctx, cfg, s) {
			d.mu.Lock()
			d.sent[alertKey(s.Symbol, s.Kind)] = struct{}{}
			d.mu.Unlock()
			if d.metrics != nil {
				d.metrics.RecordAlert(string(s.Kind))
			}
		}
	}
}

// deliver fans the message out and reports whether at least one
// recipient accepted it.
func (d *Dispatcher) deliver(ctx context.Context, cfg models.AlertConfig, s models.Signal) bool {
	text := formatAlert(s)
	delivered := false
	for _, chatID := range cfg.ChatIDs {
		if err := d.notifier.Send(ctx, chatID, text); err != nil {
			if d.l != nil {
				d.l.Warn("alert delivery failed",
					applogger.String("symbol", s.Symbol),
					applogger.String("chat_id", chatID),
					applogger.Error(err))
			}
			if d.metrics != nil {
				d.metrics.RecordError("alert_delivery")
			}
			continue
		}
		delivered = true
	}
	return delivered
}

func (d *Dispatcher) applyToken(token string) {
	if token == "" {
		return
	}
	if ts, ok := d.notifier.(TokenSetter); ok {
		ts.SetToken(token)
	}
}

func alertKey(symbol string, kind models.SignalKind) string {
	return symbol + "|" + string(kind)
}

func formatAlert(s models.Signal) string {
	var b strings.Builder
	switch s.Kind {
	case models.SignalGolden:
		b.WriteString("🟡 <b>GOLDEN</b> ")
	case models.SignalExit:
		b.WriteString("🔴 <b>EXIT</b> ")
	default:
		b.WriteString("<b>" + string(s.Kind) + "</b> ")
	}
	fmt.Fprintf(&b, "%s\nPrice: %s\nScore: %.0f", s.Symbol, formatPrice(s.Price), s.Score)
	if s.Reason != "" {
		b.WriteString("\n" + s.Reason)
	}
	return b.String()
}

func formatPrice(p float64) string {
	switch {
	case p >= 100:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}
