package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Default endpoints for the OpenAI-compatible vendors.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	XAIBaseURL        = "https://api.x.ai/v1"
)

// OpenAIClient speaks the chat/completions dialect shared by OpenAI,
// OpenRouter and xAI.
type OpenAIClient struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	opts    clientOptions
}

// NewOpenAIClient builds a client for name (openai, openrouter or xai).
// An empty baseURL selects the vendor default.
func NewOpenAIClient(name, baseURL, apiKey, model string, opts ...ClientOption) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingAPIKey)
	}
	fallback := OpenAIBaseURL
	switch name {
	case ProviderOpenRouter:
		fallback = OpenRouterBaseURL
	case ProviderXAI:
		fallback = XAIBaseURL
	}
	return &OpenAIClient{
		name:    name,
		baseURL: trimBase(baseURL, fallback),
		apiKey:  apiKey,
		model:   strings.TrimSpace(model),
		opts:    buildClientOptions(opts),
	}, nil
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Complete(ctx context.Context, r Request) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if r.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": r.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": r.Prompt})

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"max_tokens":  r.maxTokens(),
		"temperature": r.temperature(),
	}
	if r.JSON {
		payload["response_format"] = map[string]any{"type": "json_object"}
	}

	headers := c.opts.headers.Clone()
	headers.Set("Authorization", "Bearer "+c.apiKey)

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	body, err := postJSON(ctx, c.opts.httpClient, c.baseURL+"/chat/completions", headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", fmt.Errorf("%s: decode: %w", c.name, err)
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrEmptyResponse)
	}
	return cc.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAIClient)(nil)

// OpenRouterHeaders are the attribution headers OpenRouter ranks apps by.
func OpenRouterHeaders(siteURL, title string) []ClientOption {
	return []ClientOption{
		WithHeader("HTTP-Referer", siteURL),
		WithHeader("X-Title", title),
	}
}
