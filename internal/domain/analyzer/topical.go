package analyzer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

var topicalStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "your": true, "all": true, "can": true, "had": true, "has": true,
	"have": true, "was": true, "what": true, "when": true, "where": true, "who": true,
	"why": true, "how": true, "that": true, "this": true, "with": true, "about": true,
	"should": true, "would": true, "could": true, "will": true, "just": true,
	"like": true, "some": true, "any": true, "there": true, "here": true, "them": true,
	"then": true, "than": true, "its": true, "it's": true, "don't": true, "i'm": true,
	"i'll": true, "been": true, "being": true, "were": true, "did": true, "does": true,
	"doing": true, "from": true, "into": true, "onto": true, "out": true, "over": true,
}

// topicalThemes maps coarse theme names to vocabulary. Two turns sharing a
// theme are related even with no literal word overlap.
var topicalThemes = map[string][]string{
	"food":          {"sushi", "japanese", "cooking", "cook", "recipe", "restaurant", "dinner", "lunch", "dish", "food", "meal", "cuisine", "ingredient", "eat"},
	"work":          {"meeting", "deadline", "project", "email", "calendar", "reminder", "schedule", "task", "office", "work"},
	"weather":       {"weather", "rain", "raining", "sunny", "forecast", "temperature", "snow", "cloudy"},
	"technology":    {"computer", "phone", "laptop", "software", "code", "app", "internet", "device", "update"},
	"entertainment": {"movie", "music", "song", "show", "game", "book", "series", "watch", "play"},
	"health":        {"doctor", "sleep", "exercise", "workout", "medicine", "tired", "headache", "sick"},
	"travel":        {"trip", "flight", "hotel", "vacation", "train", "airport", "travel", "pack"},
}

var (
	topicalQuoted     = regexp.MustCompile(`"([^"]+)"`)
	topicalHyphenated = regexp.MustCompile(`\b\w+(?:-\w+)+\b`)
	topicalProper     = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

	topicalStrongRefs = []string{
		"as you said", "you mentioned", "like you said", "you told me", "going back to", "earlier you", "you suggested",
	}
	topicalWeakRef = regexp.MustCompile(`^(that|this|it|those)\b`)
)

// TopicalSimilarity relates the latest user turn to recent assistant output.
// Its fusion weight ramps with conversation length: similarity over one or
// two turns says almost nothing, over a long exchange it says a lot.
type TopicalSimilarity struct {
	baseWeight      float64
	fullWeightTurns int
}

// NewTopicalSimilarity builds the analyzer. fullWeightTurns is the
// conversation length at which the base weight applies in full; values that
// leave no ramp are raised to 5.
func NewTopicalSimilarity(baseWeight float64, fullWeightTurns int) *TopicalSimilarity {
	if fullWeightTurns < 5 {
		fullWeightTurns = 5
	}
	return &TopicalSimilarity{baseWeight: baseWeight, fullWeightTurns: fullWeightTurns}
}

// Name implements Analyzer.
func (t *TopicalSimilarity) Name() string { return NameTopicalSimilarity }

// BaseWeight implements Analyzer.
func (t *TopicalSimilarity) BaseWeight() float64 { return t.baseWeight }

// Analyze compares the latest user turn against the most recent assistant
// turn through keyword overlap, shared topic candidates, shared themes and
// explicit references. The result always carries the ramped AdjustedWeight.
func (t *TopicalSimilarity) Analyze(_ context.Context, conv conversation.Conversation) (Result, error) {
	if !conv.LastIsUser() {
		return skipResult("last turn is not from the user"), nil
	}
	adjusted := t.adjustedWeight(len(conv))

	asst, ok := conv.LastAssistant()
	if !ok {
		return Result{
			Score:          0,
			Confidence:     0.8,
			Reasoning:      "no assistant turn to relate to",
			AdjustedWeight: adjusted,
		}, nil
	}
	last, _ := conv.Last()

	userKW := topicalKeywords(last.Content)
	asstKW := topicalKeywords(asst.Content)
	jac := jaccard(userKW, asstKW)
	cos := cosineOverlap(userKW, asstKW)
	lexScore := lexicalLadder(jac, cos)
	topicScore, topics := sharedTopics(last.Content, asst.Content)
	themeScore, themes := sharedThemes(userKW, asstKW)
	refScore := referenceScore(strings.ToLower(last.Content))

	signals := 0
	for _, s := range []float64{lexScore, topicScore, themeScore, refScore} {
		if s > 0 {
			signals++
		}
	}

	score, conf := t.tiered(len(conv), lexScore, topicScore, themeScore, refScore, signals)
	return Result{
		Score:          score,
		Confidence:     conf,
		Reasoning:      topicalReasoning(score, topics, themes, jac),
		AdjustedWeight: adjusted,
		Details: map[string]any{
			"jaccard": jac,
			"cosine":  cos,
			"topics":  topics,
			"themes":  themes,
		},
	}, nil
}

// tiered applies the per-length ladders. Short exchanges only trust explicit
// or thematic links; long ones trust the similarity metrics directly.
func (t *TopicalSimilarity) tiered(n int, lex, topic, theme, ref float64, signals int) (float64, float64) {
	best := math.Max(math.Max(lex, topic), math.Max(theme, ref))
	switch {
	case n <= 2:
		switch {
		case ref >= 8:
			return 7, 0.6
		case theme > 0:
			return 6, 0.4
		case lex >= 5:
			return 5, 0.35
		}
		return 2, 0.3
	case n <= 4:
		if best == 0 {
			return 2, 0.4
		}
		return best, clamp(0.45+0.1*float64(signals), 0.4, 0.7)
	default:
		if best == 0 {
			return 2, 0.5
		}
		return best, clamp(0.55+0.1*float64(signals), 0.5, 0.9)
	}
}

// adjustedWeight ramps the fusion weight with conversation length: a tenth
// of base through two turns, half through four, then linearly up to full at
// fullWeightTurns.
func (t *TopicalSimilarity) adjustedWeight(n int) float64 {
	switch {
	case n <= 2:
		return t.baseWeight * 0.1
	case n <= 4:
		return t.baseWeight * 0.5
	case n >= t.fullWeightTurns:
		return t.baseWeight
	default:
		span := float64(t.fullWeightTurns - 4)
		return t.baseWeight * (0.5 + 0.5*float64(n-4)/span)
	}
}

func topicalKeywords(text string) map[string]bool {
	kw := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '\''
	}) {
		w = strings.Trim(w, "'")
		if len(w) >= 3 && !topicalStopwords[w] {
			kw[w] = true
		}
	}
	return kw
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// cosineOverlap treats each keyword set as a binary vector.
func cosineOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

func lexicalLadder(jac, cos float64) float64 {
	var fromJac, fromCos float64
	switch {
	case jac >= 0.5:
		fromJac = 8
	case jac >= 0.3:
		fromJac = 7
	case jac >= 0.15:
		fromJac = 5
	case jac > 0:
		fromJac = 3
	}
	switch {
	case cos >= 0.6:
		fromCos = 7
	case cos >= 0.4:
		fromCos = 5
	case cos > 0:
		fromCos = 3
	}
	return math.Max(fromJac, fromCos)
}

// sharedTopics extracts topic candidates from the user turn (proper nouns,
// quoted phrases, hyphenated compounds) and counts how many recur in the
// assistant turn.
func sharedTopics(user, asst string) (float64, []string) {
	cands := map[string]bool{}
	for i, m := range topicalProper.FindAllStringIndex(user, -1) {
		// The very first word of the turn is capitalized by convention,
		// not because it names a topic.
		if i == 0 && m[0] == 0 {
			continue
		}
		cands[strings.ToLower(user[m[0]:m[1]])] = true
	}
	for _, m := range topicalQuoted.FindAllStringSubmatch(user, -1) {
		cands[strings.ToLower(m[1])] = true
	}
	for _, m := range topicalHyphenated.FindAllString(user, -1) {
		cands[strings.ToLower(m)] = true
	}

	low := strings.ToLower(asst)
	var shared []string
	for c := range cands {
		if strings.Contains(low, c) {
			shared = append(shared, c)
		}
	}
	switch {
	case len(shared) >= 3:
		return 8, shared
	case len(shared) == 2:
		return 7, shared
	case len(shared) == 1:
		return 5, shared
	}
	return 0, nil
}

func sharedThemes(userKW, asstKW map[string]bool) (float64, []string) {
	var shared []string
	for theme, vocab := range topicalThemes {
		var inUser, inAsst bool
		for _, w := range vocab {
			if userKW[w] {
				inUser = true
			}
			if asstKW[w] {
				inAsst = true
			}
		}
		if inUser && inAsst {
			shared = append(shared, theme)
		}
	}
	switch {
	case len(shared) >= 2:
		return 7, shared
	case len(shared) == 1:
		return 5, shared
	}
	return 0, nil
}

func referenceScore(user string) float64 {
	for _, ref := range topicalStrongRefs {
		if strings.Contains(user, ref) {
			return 8
		}
	}
	if topicalWeakRef.MatchString(user) {
		return 5
	}
	return 0
}

func topicalReasoning(score float64, topics, themes []string, jac float64) string {
	switch {
	case len(topics) > 0:
		return fmt.Sprintf("recurring topic %q", topics[0])
	case len(themes) > 0:
		return fmt.Sprintf("shared %s theme with the assistant's last turn", themes[0])
	case score >= 5:
		return fmt.Sprintf("keyword overlap with the assistant's last turn (jaccard %.2f)", jac)
	}
	return "little topical overlap with the assistant's last turn"
}
