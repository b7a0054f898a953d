package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/miraivoice/heed/internal/domain/conversation"
)

// Flow sub-scores. Each indicator that fires contributes its fixed score;
// the final score is the maximum over firing indicators.
const (
	flowAnswerToQuestion = 9.0
	flowReplyToQuestion  = 8.0
	flowContinuation     = 7.0
	flowPlainAdjacency   = 6.0
	flowStrongContinuity = 7.0
	flowWeakContinuity   = 5.0
	flowCuriosity        = 7.0
	flowOpinion          = 5.0
	flowUnansweredUser   = 6.0
	flowCoherence        = 6.0
	flowNeutral          = 4.0
)

var (
	flowResponseOpeners = regexp.MustCompile(`^(yes|no|yeah|nah|yep|maybe|well|i think|i guess|sure|probably|not sure|but|hmm|okay|ok)\b`)
	flowContinuations   = regexp.MustCompile(`\b(thanks|but|and|wait|that's|your answer)\b`)
	flowQuestionMarkers = regexp.MustCompile(`\?|\b(what|how|why|would you like|do you want|any)\b`)
)

var flowCuriosityCues = []string{
	"tell me more", "what about", "how about", "what else", "really?", "interesting", "wow",
}

var flowOpinionCues = []string{
	"i think", "i guess", "i don't know", "actually", "kinda", "sort of", "huh",
}

// Flow scores conversational momentum: whether the latest user turn reads as
// a continuation of a live exchange rather than an isolated remark.
type Flow struct {
	window     int
	baseWeight float64
}

// NewFlow builds the analyzer. window bounds how many trailing turns are
// inspected; values below 2 fall back to 2.
func NewFlow(window int, baseWeight float64) *Flow {
	if window < 2 {
		window = 2
	}
	return &Flow{window: window, baseWeight: baseWeight}
}

// Name implements Analyzer.
func (f *Flow) Name() string { return NameFlow }

// BaseWeight implements Analyzer.
func (f *Flow) BaseWeight() float64 { return f.baseWeight }

type flowIndicator struct {
	score  float64
	reason string
}

// Analyze collects the firing indicators over the trailing window. No firing
// indicator yields a neutral 4 at half confidence.
func (f *Flow) Analyze(_ context.Context, conv conversation.Conversation) (Result, error) {
	if !conv.LastIsUser() {
		return skipResult("last turn is not from the user"), nil
	}
	win := conv.Tail(f.window)
	last, _ := win.Last()
	user := strings.ToLower(last.Content)

	var inds []flowIndicator

	if ind, ok := f.followUp(win, user); ok {
		inds = append(inds, ind)
	}
	if ind, ok := f.continuity(win); ok {
		inds = append(inds, ind)
	}
	if ind, ok := f.engagement(user); ok {
		inds = append(inds, ind)
	}
	if len(win) >= 2 && win[len(win)-2].Role == conversation.RoleUser {
		inds = append(inds, flowIndicator{flowUnansweredUser, "user is still waiting on an answer"})
	}
	if ind, ok := f.coherence(win, user); ok {
		inds = append(inds, ind)
	}

	if len(inds) == 0 {
		return Result{
			Score:      flowNeutral,
			Confidence: 0.5,
			Reasoning:  "no conversational flow indicators",
		}, nil
	}

	score := 0.0
	for _, ind := range inds {
		if ind.score > score {
			score = ind.score
		}
	}
	reasons := make([]string, 0, 2)
	for _, ind := range inds {
		reasons = append(reasons, ind.reason)
		if len(reasons) == 2 {
			break
		}
	}
	return Result{
		Score:      score,
		Confidence: clamp(0.6+0.1*float64(len(inds)), 0, 1),
		Reasoning:  strings.Join(reasons, "; "),
		Details:    map[string]any{"indicators": len(inds)},
	}, nil
}

// followUp fires when the latest turn directly follows an assistant turn.
// An assistant question answered with a response-style opener scores highest.
func (f *Flow) followUp(win conversation.Conversation, user string) (flowIndicator, bool) {
	if len(win) < 2 || win[len(win)-2].Role != conversation.RoleAssistant {
		return flowIndicator{}, false
	}
	asst := strings.ToLower(win[len(win)-2].Content)
	if flowQuestionMarkers.MatchString(asst) {
		if flowResponseOpeners.MatchString(user) {
			return flowIndicator{flowAnswerToQuestion, "direct answer to the assistant's question"}, true
		}
		return flowIndicator{flowReplyToQuestion, "reply following the assistant's question"}, true
	}
	if flowContinuations.MatchString(user) {
		return flowIndicator{flowContinuation, "continuation of the assistant's last turn"}, true
	}
	return flowIndicator{flowPlainAdjacency, "message immediately follows an assistant turn"}, true
}

// continuity fires on a sustained back-and-forth: enough turns in the window
// with the user holding a meaningful share of them.
func (f *Flow) continuity(win conversation.Conversation) (flowIndicator, bool) {
	if len(win) < 3 {
		return flowIndicator{}, false
	}
	users, assistants := win.CountRoles()
	if assistants == 0 {
		return flowIndicator{}, false
	}
	ratio := float64(users) / float64(assistants)
	switch {
	case ratio > 0.7:
		return flowIndicator{flowStrongContinuity, "sustained back-and-forth exchange"}, true
	case ratio > 0.4:
		return flowIndicator{flowWeakContinuity, "ongoing exchange with sparse user turns"}, true
	}
	return flowIndicator{}, false
}

func (f *Flow) engagement(user string) (flowIndicator, bool) {
	for _, cue := range flowCuriosityCues {
		if strings.Contains(user, cue) {
			return flowIndicator{flowCuriosity, "curiosity cue in the latest turn"}, true
		}
	}
	for _, cue := range flowOpinionCues {
		if strings.Contains(user, cue) {
			return flowIndicator{flowOpinion, "opinion cue in the latest turn"}, true
		}
	}
	return flowIndicator{}, false
}

// coherence fires when the latest turn shares a substantive word with either
// of the two preceding turns.
func (f *Flow) coherence(win conversation.Conversation, user string) (flowIndicator, bool) {
	if len(win) < 2 {
		return flowIndicator{}, false
	}
	seen := map[string]bool{}
	for _, w := range strings.Fields(user) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) > 3 {
			seen[w] = true
		}
	}
	lo := len(win) - 3
	if lo < 0 {
		lo = 0
	}
	for _, msg := range win[lo : len(win)-1] {
		for _, w := range strings.Fields(strings.ToLower(msg.Content)) {
			w = strings.Trim(w, ".,!?;:'\"")
			if len(w) > 3 && seen[w] {
				return flowIndicator{flowCoherence, "shares vocabulary with the preceding turns"}, true
			}
		}
	}
	return flowIndicator{}, false
}
