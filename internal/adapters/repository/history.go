// Package repository stores scored submissions for retrieval over HTTP.
//
// The history store is a bounded in-memory structure: a map for id lookup
// plus an insertion-ordered ring that evicts the oldest record when full.
package repository

import (
	"context"
	"sync"
	"time"

	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/internal/domain/scoring"
	"github.com/miraivoice/heed/pkg/metrics"
)

const defaultHistoryCapacity = 1000

// Record is one stored scoring outcome.
type Record struct {
	ID           string                    `json:"id"`
	Conversation conversation.Conversation `json:"conversation"`
	Outcome      scoring.Outcome           `json:"outcome"`
	ScoredAt     time.Time                 `json:"scored_at"`
}

// Store is the persistence contract for scored submissions.
type Store interface {
	// Put stores a record, evicting the oldest one when at capacity.
	// Storing an existing id overwrites the record in place.
	Put(ctx context.Context, rec Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// Close releases the store. Subsequent calls fail with ErrClosed.
	Close() error
}

// HistoryStore implements Store in memory.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	byID     map[string]Record
	order    []string // insertion order, oldest first
	closed   bool
}

// NewHistoryStore creates a bounded history store.
func NewHistoryStore(opts ...StoreOption) *HistoryStore {
	s := &HistoryStore{
		capacity: defaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]Record, s.capacity)
	s.order = make([]string, 0, s.capacity)

	metrics.UpdateHistorySize(0)
	return s
}

// Put implements Store.
func (s *HistoryStore) Put(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, exists := s.byID[rec.ID]; exists {
		s.byID[rec.ID] = rec
		return nil
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
	s.byID[rec.ID] = rec
	s.order = append(s.order, rec.ID)

	metrics.UpdateHistorySize(len(s.order))
	return nil
}

// Get implements Store.
func (s *HistoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	rec, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Recent implements Store.
func (s *HistoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]Record, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}

// Count implements Store.
func (s *HistoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Close implements Store.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.byID = nil
	s.order = nil
	return nil
}
