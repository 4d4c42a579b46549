package drill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/coach/internal/domain/profile"
	"github.com/okian/coach/pkg/logger"
)

// HTTPClient wraps http.Client with the drill's timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// submitEvaluations posts every evaluation through cfg.Workers workers.
// Each player's evaluations go to one worker in order so the server sees
// them roughly in sequence.
func submitEvaluations(ctx context.Context, cfg *Config, byPlayer map[string][]Evaluation, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting evaluations",
		logger.Int("evaluations", stats.Generated),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/evaluations"

	batches := make(chan []Evaluation, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				for _, ev := range batch {
					if ctx.Err() != nil {
						return
					}
					stats.Submitted.Add(1)
					switch submitSingle(ctx, client, url, ev, stats) {
					case resultAccepted:
						stats.Accepted.Add(1)
						stats.markAccepted(ev.PlayerID)
					case resultDuplicate:
						stats.Duplicates.Add(1)
					default:
						stats.Failed.Add(1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(batches)
		for _, batch := range byPlayer {
			select {
			case <-ctx.Done():
				return
			case batches <- batch:
			}
		}
	}()
	wg.Wait()

	log.Info(ctx, "evaluation submission completed",
		logger.Int64("accepted", stats.Accepted.Load()),
		logger.Int64("duplicates", stats.Duplicates.Load()),
		logger.Int64("throttled", stats.Throttled.Load()),
		logger.Int64("failed", stats.Failed.Load()))
}

// submitSingle retries 429s with a linear backoff.
func submitSingle(ctx context.Context, client *HTTPClient, url string, ev Evaluation, stats *Stats) submitResult {
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		resp, err := client.Post(ctx, url, ev)
		if err != nil {
			return resultFailed
		}
		body, err := readBody(resp)
		if err != nil {
			return resultFailed
		}
		switch resp.StatusCode {
		case http.StatusAccepted:
			return resultAccepted
		case http.StatusOK:
			var ack AckResponse
			if json.Unmarshal(body, &ack) == nil && !ack.Duplicate {
				return resultAccepted
			}
			return resultDuplicate
		case http.StatusTooManyRequests:
			stats.Throttled.Add(1)
			select {
			case <-ctx.Done():
				return resultFailed
			case <-time.After(time.Duration(attempt) * throttleBackoff):
			}
		default:
			return resultFailed
		}
	}
	return resultFailed
}

// fetchProfile reads one player's profile.
func fetchProfile(ctx context.Context, client *HTTPClient, baseURL, playerID string) (profile.Profile, error) {
	resp, err := client.Get(ctx, baseURL+"/players/"+playerID)
	if err != nil {
		return profile.Profile{}, err
	}
	body, err := readBody(resp)
	if err != nil {
		return profile.Profile{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return profile.Profile{}, fmt.Errorf("get profile %s: status %d", playerID, resp.StatusCode)
	}
	var p profile.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return profile.Profile{}, fmt.Errorf("decode profile %s: %w", playerID, err)
	}
	return p, nil
}
