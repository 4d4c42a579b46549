// Package model contains the messages passed between the HTTP layer, the
// queue and the workers.
package model

import (
	"time"

	"github.com/okian/coach/internal/domain/profile"
)

// EvaluationEvent is one evaluated decision waiting to be applied to a
// player's profile.
type EvaluationEvent struct {
	EventID    string             // idempotency key
	PlayerID   string             // profile to update
	Evaluation profile.Evaluation // what the coach concluded
	ReceivedAt time.Time          // when the API accepted it
}

// Key is the per-player serialization key.
func (e EvaluationEvent) Key() string { return e.PlayerID }

// Age is how long the event has waited since it was accepted.
func (e EvaluationEvent) Age(now time.Time) time.Duration {
	if e.ReceivedAt.IsZero() {
		return 0
	}
	return now.Sub(e.ReceivedAt)
}
