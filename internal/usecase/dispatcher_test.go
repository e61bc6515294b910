package usecase

import (
	"context"
	"errors"
	"testing"

	"GoldenScan/internal/domain/models"
	"GoldenScan/internal/repository"
)

type fakeNotifier struct {
	sent    []string // chat IDs of successful deliveries, in order
	failFor map[string]bool
	token   string
}

func (f *fakeNotifier) Send(_ context.Context, chatID, _ string) error {
	if f.failFor[chatID] {
		return errors.New("telegram: chat unreachable")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeNotifier) SetToken(token string) { f.token = token }

func testDispatcher(n *fakeNotifier, chatIDs ...string) *Dispatcher {
	return NewDispatcher(n, repository.NewMemoryStateStore(), nil, nil, models.AlertConfig{
		BotToken: "test-token",
		ChatIDs:  chatIDs,
		Enabled:  true,
	})
}

func TestDispatchSendsGoldenOncePerOccurrence(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n, "111")

	signals := []models.Signal{goldenSignal("BTCUSDT", 100)}
	for i := 0; i < 3; i++ {
		d.Dispatch(context.Background(), signals)
	}

	if len(n.sent) != 1 {
		t.Fatalf("expected 1 delivery across 3 identical cycles, got %d", len(n.sent))
	}
}

func TestDispatchRearmsAfterClassificationChange(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n, "111")

	d.Dispatch(context.Background(), []models.Signal{goldenSignal("BTCUSDT", 100)})
	d.Dispatch(context.Background(), []models.Signal{{Symbol: "BTCUSDT", Kind: models.SignalMomentum, Price: 101}})
	d.Dispatch(context.Background(), []models.Signal{goldenSignal("BTCUSDT", 102)})

	if len(n.sent) != 2 {
		t.Fatalf("expected re-delivery after classification change, got %d sends", len(n.sent))
	}
}

func TestDispatchIgnoresNonAlertableKinds(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n, "111")

	d.Dispatch(context.Background(), []models.Signal{
		{Symbol: "BTCUSDT", Kind: models.SignalMomentum, Price: 100},
		{Symbol: "ETHUSDT", Kind: models.SignalSupport, Price: 3000},
	})

	if len(n.sent) != 0 {
		t.Fatalf("momentum/support must not alert, got %d sends", len(n.sent))
	}
}

func TestDispatchMarksOnlyOnSuccessfulDelivery(t *testing.T) {
	n := &fakeNotifier{failFor: map[string]bool{"111": true}}
	d := testDispatcher(n, "111")

	signals := []models.Signal{goldenSignal("BTCUSDT", 100)}
	d.Dispatch(context.Background(), signals)

	// Recipient recovers; the undelivered alert must retry.
	n.failFor["111"] = false
	d.Dispatch(context.Background(), signals)

	if len(n.sent) != 1 {
		t.Fatalf("expected delivery on retry after failure, got %d sends", len(n.sent))
	}
}

func TestDispatchPartialDeliveryStillMarks(t *testing.T) {
	n := &fakeNotifier{failFor: map[string]bool{"222": true}}
	d := testDispatcher(n, "111", "222")

	signals := []models.Signal{goldenSignal("BTCUSDT", 100)}
	d.Dispatch(context.Background(), signals)
	d.Dispatch(context.Background(), signals)

	// One recipient succeeded, so the mark is set and no retry happens.
	if len(n.sent) != 1 {
		t.Fatalf("expected single delivery to the healthy recipient, got %d", len(n.sent))
	}
}

func TestDispatchExitAlertsSeparatelyFromGolden(t *testing.T) {
	n := &fakeNotifier{}
	d := testDispatcher(n, "111")

	d.Dispatch(context.Background(), []models.Signal{goldenSignal("BTCUSDT", 100)})
	d.Dispatch(context.Background(), []models.Signal{exitSignal("BTCUSDT", 95)})

	if len(n.sent) != 2 {
		t.Fatalf("golden and exit are distinct occurrences, got %d sends", len(n.sent))
	}
}

func TestSendTestRequiresConfiguration(t *testing.T) {
	n := &fakeNotifier{}
	d := NewDispatcher(n, repository.NewMemoryStateStore(), nil, nil, models.AlertConfig{Enabled: true})

	if err := d.SendTest(context.Background(), "ping"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	configured := testDispatcher(n, "111")
	if err := configured.SendTest(context.Background(), "ping"); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0] != "111" {
		t.Fatalf("expected one delivery to 111, got %v", n.sent)
	}
}

func TestSetConfigPersistsAndUpdatesToken(t *testing.T) {
	n := &fakeNotifier{}
	store := repository.NewMemoryStateStore()
	d := NewDispatcher(n, store, nil, nil, models.AlertConfig{Enabled: false})

	cfg := models.AlertConfig{BotToken: "new-token", ChatIDs: []string{"333"}, Enabled: true}
	if err := d.SetConfig(context.Background(), cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if n.token != "new-token" {
		t.Fatalf("notifier token = %q, want new-token", n.token)
	}

	fresh := NewDispatcher(n, store, nil, nil, models.AlertConfig{})
	fresh.LoadConfig(context.Background())
	got := fresh.Config()
	if got.BotToken != "new-token" || !got.Enabled || len(got.ChatIDs) != 1 {
		t.Fatalf("reloaded config = %+v", got)
	}
}
