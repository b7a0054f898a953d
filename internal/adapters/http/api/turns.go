package api

import (
	"encoding/json"
	"net/http"
)

// TurnsHandler accepts conversation turns for asynchronous scoring.
type TurnsHandler struct {
	deps Dependencies
}

// NewTurnsHandler creates a handler for POST /turns.
func NewTurnsHandler(deps Dependencies) *TurnsHandler {
	return &TurnsHandler{deps: deps}
}

// HandlePostTurns enqueues a submission and acknowledges it. Duplicate
// request ids are acknowledged without re-queueing so retries stay cheap.
func (h *TurnsHandler) HandlePostTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", WrapKind("turns", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", WrapKind("turns", ErrBadRequest, err))
		return
	}

	id := req.RequestID
	if id == "" {
		id = h.deps.NewRequestID()
	}

	if h.deps.SeenAndRecord(r.Context(), id) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", RequestID: id, Duplicate: true})
		return
	}

	if !h.deps.Enqueue(r.Context(), id, req.conversation()) {
		// Roll back the dedupe entry so a later retry is not swallowed.
		h.deps.Unrecord(r.Context(), id)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind("turns", ErrBackpressure))
		return
	}

	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", RequestID: id})
}
