// Package scoring fuses the analyzer verdicts into one relevance score.
//
// The engine runs the cheap analyzers concurrently, fuses their results into
// a fast heuristic score, decides whether the expensive model judge is worth
// invoking, and fuses again with the judge's verdict folded in. A failing
// analyzer never fails a request; it degrades to a neutral result.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miraivoice/heed/internal/domain/analyzer"
	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/pkg/logger"
	"github.com/miraivoice/heed/pkg/metrics"
)

// Neutral fallback for an analyzer that errored or panicked.
const (
	fallbackScore      = 5.0
	fallbackConfidence = 0.1
)

// Confidence assigned to the heuristic substitute when the judge fails.
const judgeFallbackConfidence = 0.3

// Fusion bounds. The fast score may legitimately sit at zero; the final
// score never goes below one.
const (
	fastScoreMin  = 0.0
	fastScoreMax  = 10.0
	finalScoreMin = 1.0
	finalScoreMax = 10.0
)

// Address damping. A loud name match is discounted when the sentence shape
// and the conversational flow both disagree with it.
const (
	strongAddressScore = 8.0
	dampingHardFactor  = 0.3
	dampingHardBelow   = 4.0
	dampingSoftFactor  = 0.7
	dampingSoftBelow   = 6.0
)

// Judge invocation thresholds.
const (
	judgeSkipHighScore  = 8.5
	judgeAmbiguousLow   = 3.0
	judgeAmbiguousHigh  = 8.0
	judgeSpreadTrigger  = 4.0
	judgeLowConfTrigger = 0.6
	overrideAddressMin  = 8.0
	overrideSyntaxMin   = 6.0
)

// Judge decision branch names, used in reasoning details and metrics.
const (
	BranchJudgeDisabled  = "judge_disabled"
	BranchDirectOverride = "direct_address_confirmation"
	BranchConfidentHigh  = "confident_high_score"
	BranchAmbiguousBand  = "ambiguous_band"
	BranchDisagreement   = "signal_disagreement"
	BranchLowConfidence  = "low_confidence"
	BranchConfidentLow   = "confident_low_score"
)

// Clarity bonus for an unambiguous direct address backed by directed syntax.
const (
	clarityBonus        = 1.0
	clarityAddressScore = 10.0
	clarityAddressConf  = 0.8
	claritySyntaxMin    = 6.0
)

// Response action thresholds over the final score.
const (
	respondThreshold = 7.0
	maybeThreshold   = 4.0
)

const maxReasoningParts = 3

// AnalyzerOutcome is one analyzer's result together with the effective
// weight it carried into fusion.
type AnalyzerOutcome struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	analyzer.Result
}

// Details exposes the intermediate fusion state for debugging and storage.
type Details struct {
	HeuristicResults []AnalyzerOutcome `json:"heuristic_results"`
	FastScore        float64           `json:"fast_score"`
	FinalScore       float64           `json:"final_score"`
	JudgeInvoked     bool              `json:"judge_invoked"`
	JudgeBranch      string            `json:"judge_branch"`
	DurationMs       int64             `json:"duration_ms"`
}

// Outcome is the engine's verdict on a conversation.
type Outcome struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	Details   Details `json:"details"`
}

// Action maps a final score onto the response decision.
func Action(score float64) string {
	switch {
	case score >= respondThreshold:
		return "respond"
	case score >= maybeThreshold:
		return "maybe_respond"
	default:
		return "ignore"
	}
}

// Engine orchestrates the analyzers. Safe for concurrent use.
type Engine struct {
	fast  []analyzer.Analyzer
	judge analyzer.Analyzer
	log   logger.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithFastAnalyzers sets the cheap analyzers run on every request.
func WithFastAnalyzers(fast ...analyzer.Analyzer) Option {
	return func(e *Engine) { e.fast = fast }
}

// WithJudge sets the model judge. A nil judge disables invocation entirely.
func WithJudge(j analyzer.Analyzer) Option {
	return func(e *Engine) { e.judge = j }
}

// WithLogger overrides the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds the engine. An unbalanced weight table is logged and
// tolerated; the weighted average normalizes regardless.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("scoring")
	}

	sum := 0.0
	for _, a := range e.fast {
		sum += a.BaseWeight()
	}
	if e.judge != nil {
		sum += e.judge.BaseWeight()
	}
	if e.judge != nil && math.Abs(sum-1.0) > 0.05 {
		e.log.Warn(context.Background(), "analyzer weights do not sum to 1",
			logger.Float64("sum", sum))
	}
	return e
}

// Score runs the full pipeline over the conversation.
func (e *Engine) Score(ctx context.Context, conv conversation.Conversation) (Outcome, error) {
	if len(conv) == 0 {
		return Outcome{}, ErrEmptyConversation
	}
	start := time.Now()

	results := e.fanOut(ctx, conv)
	fastScore := fuse(results, fastScoreMin)
	invoke, branch := e.judgeDecision(results, fastScore)

	if invoke {
		metrics.RecordJudgeInvocation(branch)
		results = append(results, e.runJudge(ctx, conv, fastScore))
	} else {
		metrics.RecordJudgeSkip(branch)
	}

	finalScore := fuse(results, finalScoreMin)
	if bonus, ok := clarityBonusApplies(results); ok {
		finalScore = math.Min(finalScoreMax, finalScore+bonus)
	}

	elapsed := time.Since(start)
	out := Outcome{
		Score:     finalScore,
		Reasoning: synthesizeReasoning(finalScore, results),
		Details: Details{
			HeuristicResults: results,
			FastScore:        fastScore,
			FinalScore:       finalScore,
			JudgeInvoked:     invoke,
			JudgeBranch:      branch,
			DurationMs:       elapsed.Milliseconds(),
		},
	}

	metrics.RecordScoringDuration(float64(elapsed.Milliseconds()))
	metrics.RecordFusedScore(finalScore)
	e.log.Debug(ctx, "conversation scored",
		logger.Float64("fast_score", fastScore),
		logger.Float64("final_score", finalScore),
		logger.Bool("judge_invoked", invoke),
		logger.String("judge_branch", branch),
		logger.Int("turns", len(conv)))
	return out, nil
}

// fanOut runs every fast analyzer concurrently. Individual failures and
// panics degrade to the neutral fallback result.
func (e *Engine) fanOut(ctx context.Context, conv conversation.Conversation) []AnalyzerOutcome {
	results := make([]AnalyzerOutcome, len(e.fast))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range e.fast {
		g.Go(func() error {
			results[i] = e.runAnalyzer(gctx, a, conv)
			return nil
		})
	}
	_ = g.Wait()

	damp := addressDamping(results)
	for i, a := range e.fast {
		w := effectiveWeight(a.BaseWeight(), results[i].Result)
		if results[i].Name == analyzer.NameLexicalAddress && results[i].Score >= strongAddressScore {
			w *= damp
		}
		results[i].Weight = w
	}
	return results
}

func (e *Engine) runAnalyzer(ctx context.Context, a analyzer.Analyzer, conv conversation.Conversation) (out AnalyzerOutcome) {
	start := time.Now()
	defer func() {
		metrics.RecordAnalyzerLatency(a.Name(), float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			metrics.RecordAnalyzerFailure(a.Name())
			e.log.Error(ctx, "analyzer panicked",
				logger.String("analyzer", a.Name()),
				logger.Any("panic", r))
			out = fallbackOutcome(a)
		}
	}()

	res, err := a.Analyze(ctx, conv)
	if err != nil {
		metrics.RecordAnalyzerFailure(a.Name())
		e.log.Warn(ctx, "analyzer failed, using neutral fallback",
			logger.String("analyzer", a.Name()),
			logger.Error(err))
		return fallbackOutcome(a)
	}
	return AnalyzerOutcome{Name: a.Name(), Result: res}
}

func fallbackOutcome(a analyzer.Analyzer) AnalyzerOutcome {
	return AnalyzerOutcome{
		Name: a.Name(),
		Result: analyzer.Result{
			Score:      fallbackScore,
			Confidence: fallbackConfidence,
			Reasoning:  fmt.Sprintf("%s analyzer unavailable", a.Name()),
		},
	}
}

// runJudge invokes the model judge, substituting the heuristic score at low
// confidence when the model is unreachable.
func (e *Engine) runJudge(ctx context.Context, conv conversation.Conversation, fastScore float64) AnalyzerOutcome {
	start := time.Now()
	res, err := e.judge.Analyze(ctx, conv)
	metrics.RecordJudgeLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordJudgeFailure()
		e.log.Warn(ctx, "model judge unavailable, substituting heuristic score",
			logger.Error(err),
			logger.Float64("fast_score", fastScore))
		res = analyzer.Result{
			Score:      fastScore,
			Confidence: judgeFallbackConfidence,
			Reasoning:  "model judge unavailable; heuristic score substituted",
		}
	}
	out := AnalyzerOutcome{Name: e.judge.Name(), Result: res}
	out.Weight = effectiveWeight(e.judge.BaseWeight(), out.Result)
	return out
}

// effectiveWeight is the base or adjusted weight scaled by confidence.
func effectiveWeight(base float64, res analyzer.Result) float64 {
	if res.AdjustedWeight > 0 {
		base = res.AdjustedWeight
	}
	return base * res.Confidence
}

// addressDamping computes the discount applied to a strong address score
// from the mean of the syntax and flow scores.
func addressDamping(results []AnalyzerOutcome) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Name == analyzer.NameSyntax || r.Name == analyzer.NameFlow {
			sum += r.Score
			n++
		}
	}
	if n == 0 {
		return 1
	}
	mean := sum / float64(n)
	switch {
	case mean < dampingHardBelow:
		return dampingHardFactor
	case mean < dampingSoftBelow:
		return dampingSoftFactor
	}
	return 1
}

// fuse computes the confidence-weighted average over the outcomes, clamped
// to [lo, 10]. With no usable weight it returns the neutral fallback.
func fuse(results []AnalyzerOutcome, lo float64) float64 {
	var sumW, sum float64
	for _, r := range results {
		sumW += r.Weight
		sum += r.Weight * r.Score
	}
	if sumW == 0 {
		return fallbackScore
	}
	v := sum / sumW
	if v < lo {
		return lo
	}
	if v > fastScoreMax {
		return fastScoreMax
	}
	return v
}

// judgeDecision picks the invocation branch. The direct-address override
// outranks the confident-high skip: a loud address with directed syntax is
// always worth confirming.
func (e *Engine) judgeDecision(results []AnalyzerOutcome, fastScore float64) (bool, string) {
	if e.judge == nil {
		return false, BranchJudgeDisabled
	}
	la := scoreOf(results, analyzer.NameLexicalAddress)
	syn := scoreOf(results, analyzer.NameSyntax)

	switch {
	case la >= overrideAddressMin && syn >= overrideSyntaxMin:
		return true, BranchDirectOverride
	case fastScore >= judgeSkipHighScore:
		return false, BranchConfidentHigh
	case fastScore >= judgeAmbiguousLow && fastScore <= judgeAmbiguousHigh:
		return true, BranchAmbiguousBand
	case scoreSpread(results) > judgeSpreadTrigger:
		return true, BranchDisagreement
	case meanConfidence(results) < judgeLowConfTrigger:
		return true, BranchLowConfidence
	}
	return false, BranchConfidentLow
}

func scoreOf(results []AnalyzerOutcome, name string) float64 {
	for _, r := range results {
		if r.Name == name {
			return r.Score
		}
	}
	return 0
}

func scoreSpread(results []AnalyzerOutcome) float64 {
	if len(results) == 0 {
		return 0
	}
	minS, maxS := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		minS = math.Min(minS, r.Score)
		maxS = math.Max(maxS, r.Score)
	}
	return maxS - minS
}

func meanConfidence(results []AnalyzerOutcome) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}

// clarityBonusApplies grants the bonus only for a maximal, confident name
// match backed by directed sentence shape.
func clarityBonusApplies(results []AnalyzerOutcome) (float64, bool) {
	var la *AnalyzerOutcome
	for i, r := range results {
		if r.Name == analyzer.NameLexicalAddress {
			la = &results[i]
			break
		}
	}
	if la == nil || la.Score != clarityAddressScore || la.Confidence < clarityAddressConf {
		return 0, false
	}
	if scoreOf(results, analyzer.NameSyntax) < claritySyntaxMin {
		return 0, false
	}
	return clarityBonus, true
}

// synthesizeReasoning builds the human-readable verdict from a headline and
// the strongest contributors, ranked by weight, score and confidence.
func synthesizeReasoning(finalScore float64, results []AnalyzerOutcome) string {
	type ranked struct {
		contribution float64
		reasoning    string
	}
	contributors := make([]ranked, 0, len(results))
	for _, r := range results {
		c := r.Weight * r.Score * r.Confidence
		if c > 0 && r.Reasoning != "" {
			contributors = append(contributors, ranked{c, r.Reasoning})
		}
	}
	for i := 1; i < len(contributors); i++ {
		for j := i; j > 0 && contributors[j].contribution > contributors[j-1].contribution; j-- {
			contributors[j], contributors[j-1] = contributors[j-1], contributors[j]
		}
	}

	var headline string
	switch {
	case finalScore >= respondThreshold:
		headline = "Strong indication to respond"
	case finalScore >= maybeThreshold:
		headline = "Moderate indication to respond"
	default:
		headline = "Low indication to respond"
	}

	parts := make([]string, 0, maxReasoningParts)
	for _, c := range contributors {
		parts = append(parts, c.reasoning)
		if len(parts) == maxReasoningParts {
			break
		}
	}
	if len(parts) == 0 {
		return headline
	}
	return headline + ": " + strings.Join(parts, "; ")
}
