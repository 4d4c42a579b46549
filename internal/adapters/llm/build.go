package llm

import (
	"fmt"
	"strings"
)

const (
	openRouterSite  = "https://github.com/okian/coach"
	openRouterTitle = "coach"
)

// ProviderConfig is the connection detail for one vendor.
type ProviderConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// Configured reports whether the vendor has what it needs to be tried.
// Ollama needs a base URL since it runs locally and is opt-in.
func (c ProviderConfig) Configured() bool {
	if c.Name == ProviderOllama {
		return strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.Model) != ""
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// Build creates a client for each configured entry. Entries without
// credentials are skipped silently; unknown names are an error.
func Build(cfgs []ProviderConfig, opts ...ClientOption) ([]Completer, error) {
	var out []Completer
	for _, c := range cfgs {
		if !c.Configured() {
			continue
		}
		switch c.Name {
		case ProviderOpenAI, ProviderOpenRouter, ProviderXAI:
			copts := opts
			if c.Name == ProviderOpenRouter {
				copts = append(OpenRouterHeaders(openRouterSite, openRouterTitle), opts...)
			}
			cl, err := NewOpenAIClient(c.Name, c.BaseURL, c.APIKey, c.Model, copts...)
			if err != nil {
				return nil, err
			}
			out = append(out, cl)
		case ProviderAnthropic:
			cl, err := NewAnthropicClient(c.BaseURL, c.APIKey, c.Model, opts...)
			if err != nil {
				return nil, err
			}
			out = append(out, cl)
		case ProviderGoogle:
			cl, err := NewGeminiClient(c.BaseURL, c.APIKey, c.Model, opts...)
			if err != nil {
				return nil, err
			}
			out = append(out, cl)
		case ProviderOllama:
			out = append(out, NewOllamaClient(c.BaseURL, c.Model, opts...))
		default:
			return nil, fmt.Errorf("unknown llm provider %q", c.Name)
		}
	}
	return out, nil
}
