package usecase

import (
	"context"
	"fmt"

	"GoldenScan/internal/domain/models"
	drepo "GoldenScan/internal/domain/repository"
)

const stateKeyPreferences = "prefs:audio_alert"

// PreferenceStore persists user preferences through the state store.
type PreferenceStore struct {
	store drepo.StateStore
}

// NewPreferenceStore creates a preference store.
func NewPreferenceStore(store drepo.StateStore) *PreferenceStore {
	return &PreferenceStore{store: store}
}

// Get returns the persisted preferences, or defaults when unset or
// unreadable.
func (p *PreferenceStore) Get(ctx context.Context) models.Preferences {
	var prefs models.Preferences
	if ok, err := p.store.Get(ctx, stateKeyPreferences, &prefs); err != nil || !ok {
		return models.Preferences{}
	}
	return prefs
}

// Set persists the preferences.
func (p *PreferenceStore) Set(ctx context.Context, prefs models.Preferences) error {
	if err := p.store.Set(ctx, stateKeyPreferences, prefs); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}
	return nil
}
