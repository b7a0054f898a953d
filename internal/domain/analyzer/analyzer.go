// Package analyzer contains the relevance analyzers: independent inspections
// of a conversation that each emit a score, a confidence, and a human-readable
// justification. The set is closed; the orchestrator fuses their results.
package analyzer

import (
	"context"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

// Analyzer names used in results, logs and metrics.
const (
	NameLexicalAddress    = "lexical_address"
	NameSyntax            = "syntax"
	NameFlow              = "flow"
	NameTopicalSimilarity = "topical_similarity"
	NameModelJudge        = "model_judge"
)

// Score and confidence bounds for individual analyzer results.
const (
	MinScore      = 0.0
	MaxScore      = 10.0
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// Result is one analyzer's verdict on the latest turn. Produced fresh per
// invocation and never persisted by the engine.
type Result struct {
	// Score in [0,10]; higher means the assistant should respond.
	Score float64 `json:"score"`

	// Reasoning is a short human-readable justification.
	Reasoning string `json:"reasoning"`

	// Confidence in [0,1]; scales the analyzer's weight during fusion.
	Confidence float64 `json:"confidence"`

	// AdjustedWeight, when positive, overrides the analyzer's static base
	// weight. Only the topical-similarity analyzer emits it, ramping its
	// contribution with conversation length.
	AdjustedWeight float64 `json:"adjusted_weight,omitempty"`

	// Details carries optional structured diagnostics.
	Details map[string]any `json:"details,omitempty"`
}

// Analyzer is a pure function over a conversation. Implementations must be
// safe for concurrent use and must never mutate the conversation.
type Analyzer interface {
	// Name returns the stable analyzer identifier.
	Name() string

	// BaseWeight returns the configured fusion weight in [0,1].
	BaseWeight() float64

	// Analyze inspects the conversation and scores the latest turn,
	// honoring ctx for cancellation.
	Analyze(ctx context.Context, conv conversation.Conversation) (Result, error)
}

// skipResult is the neutral result returned when the turn under judgment is
// not a user turn: there is nothing for the assistant to respond to.
func skipResult(reason string) Result {
	return Result{Score: 0, Reasoning: reason, Confidence: 1.0}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampScore(v float64) float64      { return clamp(v, MinScore, MaxScore) }
func clampConfidence(v float64) float64 { return clamp(v, MinConfidence, MaxConfidence) }
