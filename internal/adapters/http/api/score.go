package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/miraivoice/heed/internal/domain/scoring"
	"github.com/miraivoice/heed/pkg/metrics"
)

// ScoreHandler serves synchronous scoring requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a handler for POST /score.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandlePostScore scores a conversation inline and returns the verdict.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", WrapKind("score", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", WrapKind("score", ErrBadRequest, err))
		return
	}

	out, err := h.deps.Score(r.Context(), req.conversation())
	if err != nil {
		if errors.Is(err, scoring.ErrEmptyConversation) {
			writeError(w, http.StatusBadRequest, "invalid_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "scoring_failed", err)
		return
	}

	action := scoring.Action(out.Score)
	metrics.RecordDecision(action)

	writeJSON(w, http.StatusOK, scoreResponse{
		Score:     out.Score,
		Action:    action,
		Reasoning: out.Reasoning,
		Details:   out.Details,
	})
}
