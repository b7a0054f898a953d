// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/miraivoice/heed/internal/adapters/repository"
	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/internal/domain/dedupe"
	"github.com/miraivoice/heed/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Score runs the scoring pipeline synchronously.
	Score(ctx context.Context, conv conversation.Conversation) (scoring.Outcome, error)

	// Enqueue pushes a submission for async scoring. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, id string, conv conversation.Conversation) bool

	// NewRequestID mints an id for submissions that did not carry one.
	NewRequestID() string

	// Read operations over the scored history.
	Result(ctx context.Context, id string) (repository.Record, error)
	Recent(ctx context.Context, limit int) ([]repository.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	scoreHandler   *ScoreHandler
	turnsHandler   *TurnsHandler
	resultsHandler *ResultsHandler
	recentHandler  *RecentHandler
}

// ServerOption configures the API server.
type ServerOption func(*Server)

// WithMaxRecentLimit caps how many records GET /recent may return.
func WithMaxRecentLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.recentHandler.maxLimit = limit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		scoreHandler:   NewScoreHandler(deps),
		turnsHandler:   NewTurnsHandler(deps),
		resultsHandler: NewResultsHandler(deps),
		recentHandler:  NewRecentHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/turns", MetricsMiddleware(s.turnsHandler.HandlePostTurns, "turns"))
	mux.HandleFunc("/results/", MetricsMiddleware(s.resultsHandler.HandleGetResult, "results"))
	mux.HandleFunc("/recent", MetricsMiddleware(s.recentHandler.HandleGetRecent, "recent"))
}

// scoreRequest mirrors the request schema for POST /score and POST /turns.
type scoreRequest struct {
	// RequestID is optional; the server mints one when absent. Only
	// meaningful for async submission.
	RequestID string `json:"request_id,omitempty"`

	Messages []conversation.Message `json:"messages"`
}

func (s scoreRequest) validate() error {
	if len(s.Messages) == 0 {
		return errors.New("messages must not be empty")
	}
	for i, m := range s.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}

func (s scoreRequest) conversation() conversation.Conversation {
	return conversation.Conversation(s.Messages)
}

// scoreResponse is the verdict returned by POST /score.
type scoreResponse struct {
	Score     float64         `json:"score"`
	Action    string          `json:"action"`
	Reasoning string          `json:"reasoning"`
	Details   scoring.Details `json:"details"`
}

type ackResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
