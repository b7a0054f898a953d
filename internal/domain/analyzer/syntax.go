package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

// syntaxPattern ties one compiled pattern to its fixed score and the family
// description surfaced in reasoning.
type syntaxPattern struct {
	re    *regexp.Regexp
	score float64
	desc  string
}

// Syntax scores the grammatical shape of the final user turn: questions,
// commands and second-person constructions read as directed at the assistant
// regardless of whether a name is present.
type Syntax struct {
	families    []syntaxPattern
	thirdPerson []*regexp.Regexp
	baseWeight  float64
}

// NewSyntax builds the analyzer with its fixed pattern families.
func NewSyntax(baseWeight float64) *Syntax {
	return &Syntax{
		baseWeight: baseWeight,
		families: []syntaxPattern{
			// Direct-address verb constructions.
			{regexp.MustCompile(`^(can|could|would|will) you\b`), 9, "request aimed at a second person"},
			{regexp.MustCompile(`\b(tell|show|give|remind|help|play|find) me\b`), 9, "verb directed at the speaker's counterpart"},
			{regexp.MustCompile(`\bwhat do you think\b`), 9, "opinion asked of a second person"},
			{regexp.MustCompile(`\b(do|did|don't|do not) you (think|know|remember|mean|have)\b`), 8, "question about the counterpart's knowledge"},
			{regexp.MustCompile(`\byou (should|could|can|need to|have to|are|were)\b`), 8, "second-person construction"},

			// Question shapes.
			{regexp.MustCompile(`^(what|who|when|where|why|how|which)\b`), 8, "interrogative opener"},
			{regexp.MustCompile(`\?`), 7, "question mark"},
			{regexp.MustCompile(`^(is|are|was|were|do|does|did|can|could|should|would|will)\b`), 7, "inverted question opener"},

			// Imperative openers.
			{regexp.MustCompile(`^(tell|show|play|set|start|stop|open|close|turn|find|search|remind|explain|help|give|check|make|add)\b`), 8, "imperative opener"},
			{regexp.MustCompile(`^(please|let's|go ahead)\b`), 7, "polite imperative opener"},

			// Conversational acknowledgments.
			{regexp.MustCompile(`^(thanks|thank you|got it|sounds good)\b`), 6, "acknowledgment of a prior turn"},
			{regexp.MustCompile(`^(okay|ok|sure|alright|cool|great)[,!]\s`), 5, "acknowledgment opener with continuation"},

			// Tentative and response openers.
			{regexp.MustCompile(`^(yes|no|yeah|nah|yep|maybe|well|i think|i guess|hmm|probably|not sure|i mean)\b`), 6, "response-style opener"},
		},
		thirdPerson: []*regexp.Regexp{
			regexp.MustCompile(`\b(he|she|they|it) (is|was|has|does|did|said|helps|helped)\b`),
			regexp.MustCompile(`\babout (him|her|them|it)\b`),
			regexp.MustCompile(`\b(his|her|their) \w+`),
		},
	}
}

// Name implements Analyzer.
func (s *Syntax) Name() string { return NameSyntax }

// BaseWeight implements Analyzer.
func (s *Syntax) BaseWeight() float64 { return s.baseWeight }

// Analyze takes the highest-scoring matching family; the match count feeds
// confidence. With no family match, third-person indicators pull the score
// to 1 and anything else lands on a neutral 3.
func (s *Syntax) Analyze(_ context.Context, conv conversation.Conversation) (Result, error) {
	if !conv.LastIsUser() {
		return skipResult("last turn is not from the user"), nil
	}
	last, _ := conv.Last()
	text := strings.ToLower(strings.TrimSpace(last.Content))
	words := len(strings.Fields(text))

	var (
		best    syntaxPattern
		matches int
	)
	for _, p := range s.families {
		if !p.re.MatchString(text) {
			continue
		}
		matches++
		if p.score > best.score {
			best = p
		}
	}

	conf := s.confidence(matches, words)
	if matches > 0 {
		return Result{
			Score:      best.score,
			Confidence: conf,
			Reasoning:  best.desc,
			Details:    map[string]any{"matches": matches},
		}, nil
	}

	for _, re := range s.thirdPerson {
		if re.MatchString(text) {
			return Result{
				Score:      1,
				Confidence: s.confidence(1, words),
				Reasoning:  "third-person construction, not directed at the listener",
			}, nil
		}
	}

	return Result{
		Score:      3,
		Confidence: conf,
		Reasoning:  fmt.Sprintf("no directed syntax in a %d-word message", words),
	}, nil
}

// confidence grows with the number of matched families and shrinks for very
// short messages, clamped to [0.3,1.0].
func (s *Syntax) confidence(matches, words int) float64 {
	c := 0.45 + 0.15*float64(matches)
	if words < 3 {
		c -= 0.2
	}
	return clamp(c, 0.3, 1.0)
}
