package service

import (
	"time"

	"github.com/okian/coach/internal/adapters/llm"
	"github.com/okian/coach/internal/config"
	"github.com/okian/coach/internal/domain/profile"
)

// TrackerOptions maps tracker tuning keys onto profile options.
func TrackerOptions(cfg *config.Config) []profile.Option {
	return []profile.Option{
		profile.WithDecayFactor(cfg.DecayFactor),
		profile.WithReinforcementMultiplier(cfg.ReinforcementMultiplier),
		profile.WithAccuracyWindow(cfg.AccuracyWindow),
		profile.WithThresholds(cfg.AdvanceThreshold, cfg.RegressThreshold),
		profile.WithFocusTopN(cfg.FocusTopN),
		profile.WithTrendLimit(cfg.TrendLimit),
		profile.WithSessionGap(time.Duration(cfg.SessionGapMinutes) * time.Minute),
	}
}

// ProviderConfigs lists vendor settings in the configured priority order.
func ProviderConfigs(cfg *config.Config) []llm.ProviderConfig {
	all := map[string]llm.ProviderConfig{
		llm.ProviderOpenAI:     {Name: llm.ProviderOpenAI, APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel},
		llm.ProviderOpenRouter: {Name: llm.ProviderOpenRouter, APIKey: cfg.OpenRouterAPIKey, BaseURL: cfg.OpenRouterBaseURL, Model: cfg.OpenRouterModel},
		llm.ProviderXAI:        {Name: llm.ProviderXAI, APIKey: cfg.XAIAPIKey, BaseURL: cfg.XAIBaseURL, Model: cfg.XAIModel},
		llm.ProviderAnthropic:  {Name: llm.ProviderAnthropic, APIKey: cfg.AnthropicAPIKey, BaseURL: cfg.AnthropicBaseURL, Model: cfg.AnthropicModel},
		llm.ProviderGoogle:     {Name: llm.ProviderGoogle, APIKey: cfg.GoogleAPIKey, BaseURL: cfg.GoogleBaseURL, Model: cfg.GoogleModel},
		llm.ProviderOllama:     {Name: llm.ProviderOllama, BaseURL: cfg.OllamaBaseURL, Model: cfg.OllamaModel},
	}
	var out []llm.ProviderConfig
	for _, name := range cfg.Providers() {
		if pc, ok := all[name]; ok {
			out = append(out, pc)
		}
	}
	return out
}

// Options translates the service section of cfg.
func Options(cfg *config.Config) []Option {
	level, err := profile.ParseSkillLevel(cfg.DefaultSkillLevel)
	if err != nil {
		level = profile.Intermediate
	}
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithShardCount(cfg.ShardCount),
		WithDefaultSkillLevel(level),
		WithTrackerOptions(TrackerOptions(cfg)...),
	}
}
