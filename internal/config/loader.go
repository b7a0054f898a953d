package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if HEED_CONFIG is set
//  3. env (prefix HEED_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("HEED_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: HEED_ADDR, HEED_ASSISTANT_NAME, HEED_JUDGE_API_KEY, ...
	// Map env keys like HEED_JUDGE_API_KEY -> judge.api_key. The judge and
	// weights sections are the only nested blocks; everything else stays flat,
	// so underscores inside those keys are preserved to match koanf tags.
	envProvider := env.Provider("HEED_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "heed_")
		if rest, ok := strings.CutPrefix(s, "judge_"); ok {
			return "judge." + rest
		}
		if rest, ok := strings.CutPrefix(s, "weights_"); ok {
			return "weights." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with. The weight-sum
// check is deliberately absent here: an unbalanced table is a warning at
// startup, not a load failure.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AssistantName) == "":
		return fmt.Errorf("%w: assistant_name must not be empty", ErrInvalidConfig)
	case c.MaxHistoryWindow < 2:
		return fmt.Errorf("%w: max_history_window must be at least 2", ErrInvalidConfig)
	case c.FullWeightTurnCount < 1:
		return fmt.Errorf("%w: full_weight_turn_count must be positive", ErrInvalidConfig)
	case c.RequestTimeoutSeconds < 1:
		return fmt.Errorf("%w: request_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.EnableModelJudge {
		if strings.TrimSpace(c.Judge.Model) == "" {
			return fmt.Errorf("%w: judge.model must not be empty when the model judge is enabled", ErrInvalidConfig)
		}
		if c.Judge.TimeoutSeconds < 1 {
			return fmt.Errorf("%w: judge.timeout_seconds must be positive", ErrInvalidConfig)
		}
	}
	return nil
}
