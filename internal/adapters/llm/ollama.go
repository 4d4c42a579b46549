package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const OllamaBaseURL = "http://localhost:11434"

// OllamaClient talks to a local Ollama daemon. No key is needed.
type OllamaClient struct {
	baseURL string
	model   string
	opts    clientOptions
}

func NewOllamaClient(baseURL, model string, opts ...ClientOption) *OllamaClient {
	return &OllamaClient{
		baseURL: trimBase(baseURL, OllamaBaseURL),
		model:   strings.TrimSpace(model),
		opts:    buildClientOptions(opts),
	}
}

func (c *OllamaClient) Name() string { return ProviderOllama }

func (c *OllamaClient) Complete(ctx context.Context, r Request) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if r.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": r.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": r.Prompt})

	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": r.temperature(),
			"num_predict": r.maxTokens(),
		},
	}
	if r.JSON {
		payload["format"] = "json"
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	body, err := postJSON(ctx, c.opts.httpClient, c.baseURL+"/api/chat", c.opts.headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ProviderOllama, err)
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", ProviderOllama, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%s: %s", ProviderOllama, out.Error)
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", fmt.Errorf("%s: %w", ProviderOllama, ErrEmptyResponse)
	}
	return out.Message.Content, nil
}

var _ Completer = (*OllamaClient)(nil)
