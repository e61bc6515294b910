package models

import "time"

// SignalKind identifies a classification outcome.
type SignalKind string

const (
	SignalGolden   SignalKind = "GOLDEN"
	SignalMomentum SignalKind = "MOMENTUM"
	SignalSupport  SignalKind = "SUPPORT"
	SignalExit     SignalKind = "EXIT"
)

// Signal is the ephemeral result of classifying one symbol against its
// level set. Recomputed every evaluation cycle, never persisted directly.
type Signal struct {
	Symbol      string     `json:"symbol"`
	Kind        SignalKind `json:"kind"`
	Score       float64    `json:"score"`
	Price       float64    `json:"price"`
	Reason      string     `json:"reason"`
	ActiveSince time.Time  `json:"active_since,omitempty"`
}

// SignalEvent is the wire form published to the optional event sink
// whenever the classifier output for a symbol changes.
type SignalEvent struct {
	Symbol    string     `json:"symbol"`
	Kind      SignalKind `json:"kind"`
	Score     float64    `json:"score"`
	Price     float64    `json:"price"`
	Reason    string     `json:"reason"`
	EmittedAt time.Time  `json:"emitted_at"`
}
