package models

// HTTP request models. Bound and validated by pkg/http.

// SignalsRequest filters the current signal snapshot.
type SignalsRequest struct {
	Sort string `query:"sort" default:"score" validate:"oneof=score time"`
	Kind string `query:"kind" validate:"omitempty,oneof=GOLDEN MOMENTUM SUPPORT EXIT"`
}

// LedgerRequest filters the tracked-signal view.
type LedgerRequest struct {
	ActiveOnly bool `query:"active_only"`
}

// AlertConfigRequest updates the persisted notification configuration.
type AlertConfigRequest struct {
	BotToken string `json:"bot_token" validate:"omitempty,min=10"`
	ChatIDs  string `json:"chat_ids"` // comma-separated
	Enabled  bool   `json:"enabled"`
}

// AlertTestRequest sends a one-off message through the configured recipients.
type AlertTestRequest struct {
	Message string `json:"message" default:"GoldenScan test alert" validate:"max=512"`
}

// PreferencesRequest updates user preferences.
type PreferencesRequest struct {
	AudioAlerts bool `json:"audio_alerts"`
}
