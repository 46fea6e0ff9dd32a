package types

import "time"

// Provider identifies the completion service backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// AIConfig holds settings for connecting to the completion service.
type AIConfig struct {
	// Provider selects the backend: gemini or openai.
	Provider Provider `json:"provider" yaml:"provider"`

	// APIKey is the authentication key for the completion service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the service endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Default model identifiers and reasoning budget.
const (
	DefaultFastModel       = "gemini-2.5-flash"
	DefaultReasoningModel  = "gemini-3-pro-preview"
	DefaultReasoningBudget = 32768
)

// GenerationConfig holds the model selection policy for the request builder.
// UseReasoning on a request switches between the two models; the budget is
// not negotiated per request.
type GenerationConfig struct {
	// FastModel is used when reasoning is off (default gemini-2.5-flash).
	FastModel string `json:"fast_model" yaml:"fast_model"`

	// ReasoningModel is used when reasoning is on (default gemini-3-pro-preview).
	ReasoningModel string `json:"reasoning_model" yaml:"reasoning_model"`

	// ReasoningBudget is the reasoning token budget for ReasoningModel (default 32768).
	ReasoningBudget int32 `json:"reasoning_budget" yaml:"reasoning_budget"`

	// Timeout bounds a whole generation when set. Zero means no caller-side
	// timeout; the transport decides when the stream ends.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// WithDefaults returns a copy with zero fields replaced by the defaults.
func (c GenerationConfig) WithDefaults() GenerationConfig {
	if c.FastModel == "" {
		c.FastModel = DefaultFastModel
	}
	if c.ReasoningModel == "" {
		c.ReasoningModel = DefaultReasoningModel
	}
	if c.ReasoningBudget <= 0 {
		c.ReasoningBudget = DefaultReasoningBudget
	}
	return c
}

// ArchiveConfig holds settings for the local generation archive.
type ArchiveConfig struct {
	// Dir is the directory holding paperviz.db.
	Dir string `json:"dir" yaml:"dir"`

	// Enabled controls whether generate records its results.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxResults is the default list size (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// BatchConfig holds settings for batch generation.
type BatchConfig struct {
	// Parallelism is the number of concurrent generations (default 4).
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	// OutputDir is where batch results are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// LogConfig selects the structured log level and encoding.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format"`
}

// Config groups all settings.
type Config struct {
	AI         AIConfig         `json:"ai" yaml:"ai"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
	Log        LogConfig        `json:"log" yaml:"log"`
}
