package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/miraivoice/heed/internal/adapters/repository"
)

// MaxRecentLimit bounds how many records a single /recent call may return.
const MaxRecentLimit = 100

// ResultsHandler serves single scored results by request id.
type ResultsHandler struct {
	deps Dependencies
}

// NewResultsHandler creates a handler for GET /results/{id}.
func NewResultsHandler(deps Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleGetResult returns the stored outcome for one request id.
func (h *ResultsHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/results/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", NewKind("results", ErrBadRequest))
		return
	}

	rec, err := h.deps.Result(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// RecentHandler serves the most recently scored results.
type RecentHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRecentHandler creates a handler for GET /recent.
func NewRecentHandler(deps Dependencies) *RecentHandler {
	return &RecentHandler{deps: deps, maxLimit: MaxRecentLimit}
}

// HandleGetRecent returns the newest scored results, newest first.
// The optional limit query parameter is clamped to the configured maximum.
func (h *RecentHandler) HandleGetRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	limit := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", NewKind("recent", ErrBadRequest))
			return
		}
		limit = min(n, h.maxLimit)
	}

	recs, err := h.deps.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if recs == nil {
		recs = []repository.Record{}
	}

	writeJSON(w, http.StatusOK, recs)
}
