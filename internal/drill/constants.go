package drill

import "time"

// Defaults for flags left unset.
const (
	DefaultBaseURL   = "http://localhost:9080"
	DefaultPlayers   = 50
	DefaultPerPlayer = 40
	DefaultTimeout   = 30 * time.Second
	DefaultSettle    = 2 * time.Minute
)

const (
	pollInterval       = 250 * time.Millisecond
	maxSubmitAttempts  = 5
	throttleBackoff    = 50 * time.Millisecond
	percentage         = 100
	maxLeakSeverity    = 100
	summaryRowsDefault = 10
	filePermission     = 0o600
	dirPermission      = 0o750
)
