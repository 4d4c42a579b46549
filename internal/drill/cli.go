package drill

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/coach/pkg/logger"
)

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		return io.NopCloser(nil), logger.Init()
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, f))); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// ShowHelp prints usage information for the drill tool.
func ShowHelp() {
	fmt.Fprintf(os.Stdout, `Coach Drill
===========

Generates judged decisions for synthetic players, submits them concurrently
to a running coach service and checks every resulting profile.

Usage:
  go run ./cmd/drill [options]

Options:
  -url string
        Base URL of the service (default %q)
  -players int
        Number of synthetic players (default %d)
  -per-player int
        Evaluations per player (default %d)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default %s)
  -settle duration
        How long to wait for queued evaluations to apply (default %s)
  -output string
        Save generated evaluations to this JSON file
  -log string
        Also write log output to this file
  -verbose
        List every player in the summary
  -help
        Show this help message

Examples:
  go run ./cmd/drill -players 200 -per-player 100 -workers 32
  go run ./cmd/drill -url http://localhost:8080 -verbose
`, DefaultBaseURL, DefaultPlayers, DefaultPerPlayer, DefaultTimeout, DefaultSettle.Round(time.Second))
}
