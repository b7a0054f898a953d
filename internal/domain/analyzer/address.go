package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

// Lexical address scores, per detection tier.
const (
	scoreDirectName    = 10.0
	scoreDirectAlias   = 8.0
	scoreGenericAppeal = 6.0
	scoreBareName      = 3.0
	scoreBareAlias     = 2.0
	scoreThirdPerson   = 1.0
)

// namePatterns holds the compiled detection patterns for one name.
type namePatterns struct {
	name        string
	present     *regexp.Regexp
	thirdPerson []*regexp.Regexp
	direct      []*regexp.Regexp
}

// LexicalAddress detects whether the assistant is being addressed by name,
// or merely talked about in the third person.
type LexicalAddress struct {
	primary    namePatterns
	aliases    []namePatterns
	generic    []*regexp.Regexp
	baseWeight float64
}

// NewLexicalAddress builds the analyzer for a primary assistant name and
// optional aliases. Matching is case-insensitive.
func NewLexicalAddress(name string, aliases []string, baseWeight float64) *LexicalAddress {
	a := &LexicalAddress{
		primary:    compileNamePatterns(name),
		baseWeight: baseWeight,
		generic: []*regexp.Regexp{
			regexp.MustCompile(`^hey[,!]?\s`),
			regexp.MustCompile(`\b(can|could|would|will) you\b`),
			regexp.MustCompile(`\bplease\b`),
		},
	}
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		a.aliases = append(a.aliases, compileNamePatterns(alias))
	}
	return a
}

func compileNamePatterns(name string) namePatterns {
	n := regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(name)))
	return namePatterns{
		name:    name,
		present: regexp.MustCompile(`\b` + n + `\b`),
		// Third-person frames: talking about the assistant, not to it.
		thirdPerson: []*regexp.Regexp{
			regexp.MustCompile(`\b` + n + `'s\b`),
			regexp.MustCompile(`\b` + n + ` (is|was|has|had|does|did|helps|helped|says|said|keeps|kept|seems|sounds)\b`),
			regexp.MustCompile(`\b(asked|told) ` + n + `\b`),
			regexp.MustCompile(`\b` + n + ` to [a-z]+`),
			regexp.MustCompile(`\b(about|with|using|that|this) ` + n + `\b`),
			regexp.MustCompile(`^(yeah|yep|yes|no|nah|hmm|well|ugh)\b[^?]*\b` + n + `\b`),
		},
		// Direct-address frames: greeting, vocative punctuation, or the name
		// adjacent to a question/imperative word.
		direct: []*regexp.Regexp{
			regexp.MustCompile(`\b(hey|hi|hello|yo|ok|okay)[, ]+` + n + `\b`),
			regexp.MustCompile(`\b` + n + `\s*[,:]`),
			regexp.MustCompile(`\b` + n + ` (can|could|would|will|what|who|when|where|why|how|tell|show|help|play|set|remind|please|do|are|give|turn|find|search|stop|start)\b`),
			regexp.MustCompile(`\b(ask|tell) ` + n + `\b`),
		},
	}
}

// Name implements Analyzer.
func (a *LexicalAddress) Name() string { return NameLexicalAddress }

// BaseWeight implements Analyzer.
func (a *LexicalAddress) BaseWeight() float64 { return a.baseWeight }

// Analyze inspects only the final user turn. Absence of any name or address
// pattern is a normal zero-score outcome, never an error.
func (a *LexicalAddress) Analyze(_ context.Context, conv conversation.Conversation) (Result, error) {
	if !conv.LastIsUser() {
		return skipResult("last turn is not from the user"), nil
	}
	last, _ := conv.Last()
	text := strings.ToLower(last.Content)

	// Third-person mention of the primary name wins over everything else:
	// "talking about, not to".
	if a.primary.present.MatchString(text) {
		for _, re := range a.primary.thirdPerson {
			if re.MatchString(text) {
				return Result{
					Score:      scoreThirdPerson,
					Confidence: 0.9,
					Reasoning:  fmt.Sprintf("%q is mentioned in the third person, not addressed", a.primary.name),
					Details:    map[string]any{"pattern": re.String()},
				}, nil
			}
		}
		for _, re := range a.primary.direct {
			if re.MatchString(text) {
				return Result{
					Score:      scoreDirectName,
					Confidence: 0.9,
					Reasoning:  fmt.Sprintf("directly addressed by name %q", a.primary.name),
					Details:    map[string]any{"pattern": re.String()},
				}, nil
			}
		}
		return Result{
			Score:      scoreBareName,
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("name %q present without a clear address context", a.primary.name),
		}, nil
	}

	// Same split for aliases, at lower scores.
	for _, alias := range a.aliases {
		if !alias.present.MatchString(text) {
			continue
		}
		for _, re := range alias.thirdPerson {
			if re.MatchString(text) {
				return Result{
					Score:      scoreThirdPerson,
					Confidence: 0.85,
					Reasoning:  fmt.Sprintf("alias %q is mentioned in the third person", alias.name),
				}, nil
			}
		}
		for _, re := range alias.direct {
			if re.MatchString(text) {
				return Result{
					Score:      scoreDirectAlias,
					Confidence: 0.85,
					Reasoning:  fmt.Sprintf("directly addressed by alias %q", alias.name),
				}, nil
			}
		}
		return Result{
			Score:      scoreBareAlias,
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("alias %q present without a clear address context", alias.name),
		}, nil
	}

	// Nameless appeals ("hey,", "can you", "please") still suggest the user
	// expects somebody to answer.
	for _, re := range a.generic {
		if re.MatchString(text) {
			return Result{
				Score:      scoreGenericAppeal,
				Confidence: 0.7,
				Reasoning:  "generic address pattern without a name",
			}, nil
		}
	}

	// Absence of a name is weak evidence either way: follow-up turns rarely
	// re-name the assistant, so this outcome barely weighs into fusion.
	return Result{Score: 0, Confidence: 0.1, Reasoning: "no address indicators found"}, nil
}
