package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	AnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	baseURL string
	apiKey  string
	model   string
	opts    clientOptions
}

func NewAnthropicClient(baseURL, apiKey, model string, opts ...ClientOption) (*AnthropicClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderAnthropic, ErrMissingAPIKey)
	}
	return &AnthropicClient{
		baseURL: trimBase(baseURL, AnthropicBaseURL),
		apiKey:  apiKey,
		model:   strings.TrimSpace(model),
		opts:    buildClientOptions(opts),
	}, nil
}

func (c *AnthropicClient) Name() string { return ProviderAnthropic }

func (c *AnthropicClient) Complete(ctx context.Context, r Request) (string, error) {
	prompt := r.Prompt
	if r.JSON {
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}
	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  r.maxTokens(),
		"temperature": r.temperature(),
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
	}
	if r.System != "" {
		payload["system"] = r.System
	}

	headers := c.opts.headers.Clone()
	headers.Set("x-api-key", c.apiKey)
	headers.Set("anthropic-version", anthropicVersion)

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	body, err := postJSON(ctx, c.opts.httpClient, c.baseURL+"/v1/messages", headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ProviderAnthropic, err)
	}

	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("%s: decode: %w", ProviderAnthropic, err)
	}
	var sb strings.Builder
	for _, part := range msg.Content {
		if part.Type == "text" || part.Type == "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%s: %w", ProviderAnthropic, ErrEmptyResponse)
	}
	return sb.String(), nil
}

var _ Completer = (*AnthropicClient)(nil)
