package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

// judgeContextTurns bounds how much trailing conversation the model sees.
const judgeContextTurns = 5

// Fallback verdict when the model answers but the answer cannot be parsed.
const (
	judgeUnparsedScore      = 5.0
	judgeUnparsedConfidence = 0.3
)

// Completer produces one chat completion. Implemented by the LLM transport
// adapter; stubbed in tests.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single system+user prompt pair.
type CompletionRequest struct {
	System string
	User   string
}

// ModelJudge asks a language model whether the latest user turn warrants a
// response. Transport failures surface as errors so the orchestrator can
// substitute the heuristic score; unparsable answers degrade to a neutral
// verdict without error.
type ModelJudge struct {
	completer     Completer
	assistantName string
	baseWeight    float64
}

// NewModelJudge builds the analyzer around a completion transport.
func NewModelJudge(completer Completer, assistantName string, baseWeight float64) *ModelJudge {
	return &ModelJudge{
		completer:     completer,
		assistantName: assistantName,
		baseWeight:    baseWeight,
	}
}

// Name implements Analyzer.
func (j *ModelJudge) Name() string { return NameModelJudge }

// BaseWeight implements Analyzer.
func (j *ModelJudge) BaseWeight() float64 { return j.baseWeight }

// Analyze implements Analyzer.
func (j *ModelJudge) Analyze(ctx context.Context, conv conversation.Conversation) (Result, error) {
	if !conv.LastIsUser() {
		return skipResult("last turn is not from the user"), nil
	}
	raw, err := j.completer.Complete(ctx, CompletionRequest{
		System: j.systemPrompt(),
		User:   buildJudgePrompt(conv.Tail(judgeContextTurns)),
	})
	if err != nil {
		return Result{}, fmt.Errorf("model judge: %w", err)
	}

	v, ok := parseVerdict(raw)
	if !ok {
		return Result{
			Score:      judgeUnparsedScore,
			Confidence: judgeUnparsedConfidence,
			Reasoning:  "model judge output could not be parsed",
			Details:    map[string]any{"raw": truncate(raw, 200)},
		}, nil
	}
	return Result{
		Score:      clamp(v.Score, 1, 10),
		Confidence: clamp(v.Confidence, 0.1, 1),
		Reasoning:  v.Reasoning,
	}, nil
}

func (j *ModelJudge) systemPrompt() string {
	return fmt.Sprintf(`You judge whether a voice assistant named %q should respond to the final user turn of a conversation. The user never uses a wake word, so you must read intent from context.

Being talked TO and being talked ABOUT are different things: "%s, set a timer" is addressed to the assistant, while "%s set my timer yesterday" merely mentions it and deserves no response.

Score the final user turn from 1 to 10:
9-10: clearly addressed to the assistant, a response is expected
7-8: likely addressed to the assistant, responding is appropriate
4-6: ambiguous, the user may or may not expect a response
1-3: not addressed to the assistant (self-talk, third-person mention, or talk with another person)

Reply with only a JSON object: {"score": <number>, "reasoning": "<one sentence>", "confidence": <number between 0 and 1>}`,
		j.assistantName, j.assistantName, j.assistantName)
}

// buildJudgePrompt renders the trailing turns with role labels and flags the
// turn under judgment.
func buildJudgePrompt(conv conversation.Conversation) string {
	var b strings.Builder
	b.WriteString("Conversation:\n")
	for i, msg := range conv {
		label := "User"
		if msg.Role == conversation.RoleAssistant {
			label = "Assistant"
		}
		if i == len(conv)-1 {
			fmt.Fprintf(&b, ">>> %s (turn under judgment): %s\n", label, msg.Content)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
	}
	return b.String()
}

type judgeVerdict struct {
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

var judgeScoreRE = regexp.MustCompile(`(?i)score\D{0,10}?(\d+(?:\.\d+)?)`)

// parseVerdict tries strict JSON first, tolerating code fences and prose
// around the object, then falls back to scraping a numeric score.
func parseVerdict(raw string) (judgeVerdict, bool) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if obj, ok := extractJSONObject(cleaned); ok {
		var v judgeVerdict
		if err := json.Unmarshal([]byte(obj), &v); err == nil && v.Score > 0 {
			if v.Confidence == 0 {
				v.Confidence = 0.5
			}
			return v, true
		}
	}
	if m := judgeScoreRE.FindStringSubmatch(cleaned); m != nil {
		score, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return judgeVerdict{
				Score:      score,
				Reasoning:  firstLine(cleaned),
				Confidence: 0.5,
			}, true
		}
	}
	return judgeVerdict{}, false
}

// stripCodeFence removes a surrounding markdown fence, with or without a
// language tag.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// extractJSONObject returns the outermost brace-delimited substring.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(strings.TrimSpace(s), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
