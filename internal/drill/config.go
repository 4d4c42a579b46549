// Package drill load-tests a running coach service: it generates judged
// decisions for a set of synthetic players, submits them concurrently and
// checks that every profile ends up consistent.
package drill

import (
	"sync"
	"sync/atomic"
	"time"
)

// Config holds configuration for a drill run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Number of synthetic players
	PerPlayer  int           // Evaluations submitted per player
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for the queue to drain
	OutputFile string        // Where to save generated evaluations; empty skips
	Verbose    bool          // Print every player in the summary
}

// Evaluation is the POST /evaluations body.
type Evaluation struct {
	EventID        string   `json:"eventId"`
	PlayerID       string   `json:"playerId"`
	Correct        bool     `json:"correct"`
	LeakIdentified string   `json:"leakIdentified,omitempty"`
	Severity       float64  `json:"severity"`
	EVDelta        *float64 `json:"evDelta,omitempty"`
}

// AckResponse is the POST /evaluations reply.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"eventId"`
	Duplicate bool   `json:"duplicate"`
}

// PlayerResult is one player's outcome.
type PlayerResult struct {
	PlayerID string
	Expected int
	Played   int
	Correct  int
	Focus    string
	Level    string
	Problems []string
}

// Stats holds run counters. Submission counters are updated concurrently.
type Stats struct {
	Generated  int
	Submitted  atomic.Int64
	Accepted   atomic.Int64
	Duplicates atomic.Int64
	Throttled  atomic.Int64
	Failed     atomic.Int64
	StartTime  time.Time
	Duration   time.Duration

	mu       sync.Mutex
	accepted map[string]int
}

func (s *Stats) markAccepted(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accepted == nil {
		s.accepted = make(map[string]int)
	}
	s.accepted[playerID]++
}

// AcceptedFor reports how many evaluations the service accepted for playerID.
func (s *Stats) AcceptedFor(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted[playerID]
}
