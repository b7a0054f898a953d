// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"math"
	"runtime"
)

// Weight-table defaults and validation bounds.
const (
	weightSumTolerance = 0.05

	defaultLexicalAddressWeight = 0.25
	defaultSyntaxWeight         = 0.25
	defaultFlowWeight           = 0.20
	defaultTopicalWeight        = 0.10
	defaultModelJudgeWeight     = 0.20
)

// JudgeConfig holds the external chat-completion client settings.
type JudgeConfig struct {
	// APIKey authenticates against the chat-completion service.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `koanf:"base_url"`

	// Model names the chat-completion model to use.
	Model string `koanf:"model"`

	// MaxOutputTokens caps the completion length.
	MaxOutputTokens int `koanf:"max_output_tokens"`

	// Temperature controls sampling; kept low for stable judgments.
	Temperature float64 `koanf:"temperature"`

	// TimeoutSeconds bounds a single judge round-trip.
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// Weights holds the analyzer base-weight table. The sum should be ~1.0;
// a violation is logged as a warning at load, never fatal.
type Weights struct {
	LexicalAddress    float64 `koanf:"lexical_address"`
	Syntax            float64 `koanf:"syntax"`
	Flow              float64 `koanf:"flow"`
	TopicalSimilarity float64 `koanf:"topical_similarity"`
	ModelJudge        float64 `koanf:"model_judge"`
}

// Sum returns the total of all base weights.
func (w Weights) Sum() float64 {
	return w.LexicalAddress + w.Syntax + w.Flow + w.TopicalSimilarity + w.ModelJudge
}

// Balanced reports whether the weight table sums to ~1.0.
func (w Weights) Balanced() bool {
	return math.Abs(w.Sum()-1.0) <= weightSumTolerance
}

// DefaultWeights returns the default analyzer weight table.
func DefaultWeights() Weights {
	return Weights{
		LexicalAddress:    defaultLexicalAddressWeight,
		Syntax:            defaultSyntaxWeight,
		Flow:              defaultFlowWeight,
		TopicalSimilarity: defaultTopicalWeight,
		ModelJudge:        defaultModelJudgeWeight,
	}
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AssistantName is the primary name the lexical analyzer looks for.
	AssistantName string `koanf:"assistant_name"`

	// Aliases are alternative names or nicknames for the assistant.
	Aliases []string `koanf:"aliases"`

	// EnableModelJudge toggles the external model-judge analyzer.
	EnableModelJudge bool `koanf:"enable_model_judge"`

	// Weights is the analyzer base-weight table.
	Weights Weights `koanf:"weights"`

	// MaxHistoryWindow bounds how many trailing messages the flow analyzer reads.
	MaxHistoryWindow int `koanf:"max_history_window"`

	// FullWeightTurnCount is the conversation length at which topical
	// similarity reaches its full base weight.
	FullWeightTurnCount int `koanf:"full_weight_turn_count"`

	// RequestTimeoutSeconds is the overall scoring deadline per request.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`

	// Judge configures the chat-completion client.
	Judge JudgeConfig `koanf:"judge"`

	// QueueSize bounds the in-memory async scoring queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of async scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// HistorySize bounds the retained outcome history.
	HistorySize int `koanf:"history_size"`

	// MaxRecentLimit caps GET /recent?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		AssistantName:         "Mirai",
		Aliases:               []string{"Mira"},
		EnableModelJudge:      true,
		Weights:               DefaultWeights(),
		MaxHistoryWindow:      10,
		FullWeightTurnCount:   6,
		RequestTimeoutSeconds: 90,
		Judge: JudgeConfig{
			BaseURL:         "https://api.openai.com",
			Model:           "gpt-4o-mini",
			MaxOutputTokens: 300,
			Temperature:     0.2,
			TimeoutSeconds:  60,
		},
		QueueSize:      10_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     100_000,
		HistorySize:    1_000,
		MaxRecentLimit: 100,
	}
}
