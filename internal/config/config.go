// Package config defines the coach service configuration and how it is loaded.
//
// Values come from New's defaults, then an optional YAML file, then COACH_*
// environment variables. Keys are flat and snake_case in every layer.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory evaluation queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the evaluation id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount is the number of per-player lock stripes.
	ShardCount int `koanf:"shard_count"`

	// Profile store.
	StoreDriver string `koanf:"store_driver"`
	StoreDSN    string `koanf:"store_dsn"`
	SQLitePath  string `koanf:"sqlite_path"`

	// Tracker tuning.
	DecayFactor             float64 `koanf:"decay_factor"`
	ReinforcementMultiplier float64 `koanf:"reinforcement_multiplier"`
	AccuracyWindow          int     `koanf:"accuracy_window"`
	AdvanceThreshold        float64 `koanf:"advance_threshold"`
	RegressThreshold        float64 `koanf:"regress_threshold"`
	FocusTopN               int     `koanf:"focus_top_n"`
	TrendLimit              int     `koanf:"trend_limit"`
	SessionGapMinutes       int     `koanf:"session_gap_minutes"`
	DefaultSkillLevel       string  `koanf:"default_skill_level"`

	// LLMProviders is a comma separated priority list.
	LLMProviders      string  `koanf:"llm_providers"`
	LLMTimeoutSeconds int     `koanf:"llm_timeout_seconds"`
	LLMTemperature    float64 `koanf:"llm_temperature"`
	LLMMaxTokens      int     `koanf:"llm_max_tokens"`

	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIModel   string `koanf:"openai_model"`

	OpenRouterAPIKey  string `koanf:"openrouter_api_key"`
	OpenRouterBaseURL string `koanf:"openrouter_base_url"`
	OpenRouterModel   string `koanf:"openrouter_model"`

	XAIAPIKey  string `koanf:"xai_api_key"`
	XAIBaseURL string `koanf:"xai_base_url"`
	XAIModel   string `koanf:"xai_model"`

	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`
	AnthropicModel   string `koanf:"anthropic_model"`

	GoogleAPIKey  string `koanf:"google_api_key"`
	GoogleBaseURL string `koanf:"google_base_url"`
	GoogleModel   string `koanf:"google_model"`

	OllamaBaseURL string `koanf:"ollama_base_url"`
	OllamaModel   string `koanf:"ollama_model"`

	// MCP tool endpoint.
	MCPEnabled bool   `koanf:"mcp_enabled"`
	MCPPath    string `koanf:"mcp_path"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		EventQueueSize: 10_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     100_000,
		ShardCount:     64,

		StoreDriver: DriverMemory,
		SQLitePath:  "coach.db",

		DecayFactor:             0.98,
		ReinforcementMultiplier: 2.0,
		AccuracyWindow:          20,
		AdvanceThreshold:        0.80,
		RegressThreshold:        0.40,
		FocusTopN:               3,
		TrendLimit:              100,
		SessionGapMinutes:       30,
		DefaultSkillLevel:       "intermediate",

		LLMProviders:      "anthropic,openai,google,openrouter,xai,ollama",
		LLMTimeoutSeconds: 45,
		LLMTemperature:    0.7,
		LLMMaxTokens:      2000,

		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4o-mini",
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		OpenRouterModel:   "anthropic/claude-3.5-sonnet",
		XAIBaseURL:        "https://api.x.ai/v1",
		XAIModel:          "grok-beta",
		AnthropicBaseURL:  "https://api.anthropic.com",
		AnthropicModel:    "claude-3-5-sonnet-20241022",
		GoogleBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		GoogleModel:       "gemini-1.5-flash",
		OllamaModel:       "llama3.1:8b",

		MCPEnabled: true,
		MCPPath:    "/mcp",
	}
}

// Providers splits LLMProviders into lower-cased names, dropping blanks.
func (c *Config) Providers() []string {
	var out []string
	for _, p := range strings.Split(c.LLMProviders, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.DecayFactor <= 0 || c.DecayFactor > 1:
		return fmt.Errorf("%w: decay_factor must be in (0, 1]", ErrInvalidConfig)
	case c.ReinforcementMultiplier < 0:
		return fmt.Errorf("%w: reinforcement_multiplier must not be negative", ErrInvalidConfig)
	case c.AccuracyWindow <= 0:
		return fmt.Errorf("%w: accuracy_window must be positive", ErrInvalidConfig)
	case c.RegressThreshold < 0 || c.AdvanceThreshold > 1 || c.RegressThreshold >= c.AdvanceThreshold:
		return fmt.Errorf("%w: need 0 <= regress_threshold < advance_threshold <= 1", ErrInvalidConfig)
	case c.FocusTopN <= 0:
		return fmt.Errorf("%w: focus_top_n must be positive", ErrInvalidConfig)
	case c.SessionGapMinutes <= 0:
		return fmt.Errorf("%w: session_gap_minutes must be positive", ErrInvalidConfig)
	case c.LLMTimeoutSeconds <= 0:
		return fmt.Errorf("%w: llm_timeout_seconds must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.DefaultSkillLevel) {
	case "beginner", "intermediate", "advanced", "expert":
	default:
		return fmt.Errorf("%w: default_skill_level %q", ErrInvalidConfig, c.DefaultSkillLevel)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" && c.StoreDSN == "" {
			return fmt.Errorf("%w: sqlite needs sqlite_path or store_dsn", ErrInvalidConfig)
		}
	case DriverPostgres, DriverPgx:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: %s needs store_dsn", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if c.MCPEnabled && !strings.HasPrefix(c.MCPPath, "/") {
		return fmt.Errorf("%w: mcp_path must start with /", ErrInvalidConfig)
	}
	return nil
}
