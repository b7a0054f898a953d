// Package dedupe tracks submitted request IDs for idempotency: resubmitting
// a conversation under the same request id must not score it twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 100000

// Deduper records seen request IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so the submission can be retried. Used when
	// an id was recorded but the submission could not be enqueued.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of tracked ids.
	Size() int64
}

// inMemoryDeduper implements Deduper with a map plus a FIFO eviction order.
// With maxSize <= 0 the deduper is unbounded and never evicts.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // insertion order, oldest first; unused when unbounded
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.order = make([]string, 0, d.maxSize)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldestLocked()
	}
	d.seen[id] = struct{}{}
	if d.maxSize > 0 {
		d.order = append(d.order, id)
	}
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper. The eviction order keeps a stale entry for
// the forgotten id; evictOldestLocked skips those.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// evictOldestLocked drops the oldest still-tracked id. Must hold d.mu.
func (d *inMemoryDeduper) evictOldestLocked() {
	for len(d.order) > 0 {
		oldest := d.order[0]
		d.order = d.order[1:]
		if _, exists := d.seen[oldest]; exists {
			delete(d.seen, oldest)
			d.size.Add(-1)
			return
		}
	}
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
