package drill

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/okian/coach/pkg/logger"
)

// Report is what a finished run hands back.
type Report struct {
	Stats   *Stats
	Results []PlayerResult
}

// Run executes a complete drill: health check, generation, concurrent
// submission, settling and verification.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	cfg.applyDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting coach drill",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("perPlayer", cfg.PerPlayer),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	byPlayer := generateEvaluations(ctx, cfg, stats)
	submitEvaluations(ctx, cfg, byPlayer, stats)

	players := make([]string, 0, len(byPlayer))
	for id := range byPlayer {
		players = append(players, id)
	}
	sort.Strings(players)

	log.Info(ctx, "waiting for evaluations to be applied")
	profiles, err := awaitProfiles(ctx, cfg, players, stats)
	if err != nil {
		return nil, fmt.Errorf("profile retrieval failed: %w", err)
	}

	results, verr := verifyResults(ctx, profiles, stats)
	stats.Duration = time.Since(stats.StartTime)
	report := &Report{Stats: stats, Results: results}

	if cfg.OutputFile != "" {
		if err := saveEvaluations(ctx, cfg.OutputFile, byPlayer); err != nil {
			log.Warn(ctx, "failed to save evaluations to file", logger.Error(err))
		}
	}
	if verr != nil {
		return report, fmt.Errorf("result verification failed: %w", verr)
	}
	log.Info(ctx, "drill completed successfully", logger.Duration("duration", stats.Duration))
	return report, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.PerPlayer <= 0 {
		c.PerPlayer = DefaultPerPlayer
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
}

func checkServiceHealth(ctx context.Context, cfg *Config) error {
	resp, err := newHTTPClient(cfg.Timeout).Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	if _, err := readBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveEvaluations writes the generated evaluations as one JSON array.
func saveEvaluations(ctx context.Context, filename string, byPlayer map[string][]Evaluation) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, dirPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	ids := make([]string, 0, len(byPlayer))
	for id := range byPlayer {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var all []Evaluation
	for _, id := range ids {
		all = append(all, byPlayer[id]...)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evaluations: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	logger.Get().Info(ctx, "evaluations saved to file",
		logger.String("filename", filename),
		logger.Int("count", len(all)))
	return nil
}
