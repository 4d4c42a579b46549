// Package llm sends prompts to hosted and local language models.
//
// Every vendor client implements Completer. Manager strings several of them
// together in priority order and falls through to the next one on failure.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderXAI        = "xai"
	ProviderAnthropic  = "anthropic"
	ProviderGoogle     = "google"
	ProviderOllama     = "ollama"
)

const (
	defaultTimeout     = 45 * time.Second
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
	maxErrorBody       = 800
)

// Request is one prompt.
type Request struct {
	System string
	Prompt string
	// JSON asks the model for a single JSON object.
	JSON        bool
	MaxTokens   int
	Temperature *float64
}

func (r Request) maxTokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return defaultMaxTokens
}

func (r Request) temperature() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return defaultTemperature
}

// Completer turns a prompt into text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ExtractJSONObject returns the span from the first '{' to the last '}', or
// "" when there is none. Models like to wrap JSON in prose or fences.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// postJSON sends payload and returns the body of a 2xx response.
func postJSON(ctx context.Context, client *http.Client, url string, headers http.Header, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return body, nil
}

// HTTPError is a non-2xx answer from a vendor.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Auth reports whether retrying with the same credentials is pointless.
func (e *HTTPError) Auth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func trimBase(base, fallback string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/")
}
