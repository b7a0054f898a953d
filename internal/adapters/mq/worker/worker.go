// Package worker drains the submission queue and runs the scoring engine
// over each job.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/miraivoice/heed/internal/adapters/mq/queue"
	"github.com/miraivoice/heed/internal/adapters/repository"
	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/internal/domain/scoring"
	"github.com/miraivoice/heed/pkg/logger"
	"github.com/miraivoice/heed/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultJobTimeout       = 90 * time.Second
	workerShutdownTimeout   = 5 * time.Second
)

// Scorer runs the fusion engine over a conversation.
type Scorer interface {
	Score(ctx context.Context, conv conversation.Conversation) (scoring.Outcome, error)
}

// Recorder persists scored outcomes for later retrieval.
type Recorder interface {
	Put(ctx context.Context, rec repository.Record) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes queued submissions until stopped.
type Worker struct {
	queue    Queue
	scorer   Scorer
	recorder Recorder
	name     string

	jobTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, scorer Scorer, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		scorer:     scorer,
		recorder:   recorder,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run drains the queue until ctx is canceled, the worker is shut down or
// the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob scores one submission and records the outcome.
func (w *Worker) processJob(ctx context.Context, j queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	jctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	out, err := w.scorer.Score(jctx, j.Conversation)
	if err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("score submission %s: %w", j.ID, err)
	}
	metrics.RecordRequestScored("async")
	metrics.RecordDecision(scoring.Action(out.Score))

	rec := repository.Record{
		ID:           j.ID,
		Conversation: j.Conversation,
		Outcome:      out,
		ScoredAt:     time.Now(),
	}
	if err := w.recorder.Put(jctx, rec); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("record submission %s: %w", j.ID, err)
	}

	w.logger.Debug(ctx, "submission scored",
		logger.String("id", j.ID),
		logger.Float64("score", out.Score),
		logger.String("action", scoring.Action(out.Score)))
	return nil
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker

	logger logger.Logger
}

// NewPool creates workerCount workers; a non-positive count defaults to
// twice the CPU count.
func NewPool(workerCount int, q Queue, scorer Scorer, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, scorer, recorder, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Stop stops all workers, bounding the wait per worker.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		sctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		if err := w.Shutdown(sctx); err != nil {
			p.logger.Warn(sctx, "worker did not stop in time", logger.String("worker", w.name))
		}
		cancel()
	}
	metrics.UpdateWorkerCount(0)
}
