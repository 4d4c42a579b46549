package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls Google's generateContent endpoint.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	opts    clientOptions
}

func NewGeminiClient(baseURL, apiKey, model string, opts ...ClientOption) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", ProviderGoogle, ErrMissingAPIKey)
	}
	return &GeminiClient{
		baseURL: trimBase(baseURL, GeminiBaseURL),
		apiKey:  apiKey,
		model:   strings.TrimPrefix(strings.TrimSpace(model), "models/"),
		opts:    buildClientOptions(opts),
	}, nil
}

func (c *GeminiClient) Name() string { return ProviderGoogle }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (c *GeminiClient) Complete(ctx context.Context, r Request) (string, error) {
	gen := map[string]any{
		"temperature":     r.temperature(),
		"maxOutputTokens": r.maxTokens(),
	}
	if r.JSON {
		gen["responseMimeType"] = "application/json"
	}
	payload := map[string]any{
		"contents":         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: r.Prompt}}}},
		"generationConfig": gen,
	}
	if r.System != "" {
		payload["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: r.System}}}
	}

	headers := c.opts.headers.Clone()
	headers.Set("x-goog-api-key", c.apiKey)

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()
	endpoint := c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent"
	body, err := postJSON(ctx, c.opts.httpClient, endpoint, headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ProviderGoogle, err)
	}

	var resp struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode: %w", ProviderGoogle, err)
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%s: %w", ProviderGoogle, ErrEmptyResponse)
	}
	return sb.String(), nil
}

var _ Completer = (*GeminiClient)(nil)
