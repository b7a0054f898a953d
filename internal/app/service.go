// Package service wires the scoring engine, the submission pipeline and the
// history store into the dependencies the HTTP API needs.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miraivoice/heed/internal/adapters/llm"
	subqueue "github.com/miraivoice/heed/internal/adapters/mq/queue"
	workerpool "github.com/miraivoice/heed/internal/adapters/mq/worker"
	"github.com/miraivoice/heed/internal/adapters/repository"
	"github.com/miraivoice/heed/internal/config"
	"github.com/miraivoice/heed/internal/domain/analyzer"
	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/internal/domain/dedupe"
	"github.com/miraivoice/heed/internal/domain/scoring"
	"github.com/miraivoice/heed/pkg/logger"
	"github.com/miraivoice/heed/pkg/metrics"
)

// Service implements the API dependencies for the relevance scorer.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *scoring.Engine
	history repository.Store
	deduper dedupe.Deduper
	queue   subqueue.Queue
	pool    *workerpool.Pool

	// Configuration
	assistantName   string
	aliases         []string
	weights         config.Weights
	historyWindow   int
	fullWeightTurns int
	judgeEnabled    bool
	judgeConfig     llm.Config
	requestTimeout  time.Duration
	queueSize       int
	workerCount     int
	dedupeSize      int
	historySize     int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAssistantName sets the name the address analyzer listens for.
func WithAssistantName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.assistantName = name
		}
	}
}

// WithAliases sets alternate names for the assistant.
func WithAliases(aliases []string) Option {
	return func(s *Service) { s.aliases = aliases }
}

// WithWeights sets the analyzer weight table.
func WithWeights(w config.Weights) Option {
	return func(s *Service) { s.weights = w }
}

// WithHistoryWindow bounds how many trailing turns the flow analyzer reads.
func WithHistoryWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyWindow = n
		}
	}
}

// WithFullWeightTurnCount sets the conversation length at which topical
// similarity reaches its full weight.
func WithFullWeightTurnCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fullWeightTurns = n
		}
	}
}

// WithModelJudge enables or disables the model judge.
func WithModelJudge(enabled bool) Option {
	return func(s *Service) { s.judgeEnabled = enabled }
}

// WithJudgeConfig sets the completion transport settings.
func WithJudgeConfig(cfg llm.Config) Option {
	return func(s *Service) { s.judgeConfig = cfg }
}

// WithRequestTimeout bounds synchronous scoring requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithQueueSize sets the submission queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistorySize bounds the scored-submission history.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		assistantName:   "Mirai",
		aliases:         []string{"Mira"},
		weights:         config.DefaultWeights(),
		historyWindow:   10,
		fullWeightTurns: 6,
		requestTimeout:  90 * time.Second,
		queueSize:       10000,
		workerCount:     runtime.NumCPU() * 2,
		dedupeSize:      100000,
		historySize:     1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the analyzers, the engine and the async pipeline. A judge
// transport that cannot be built disables the judge rather than failing
// startup; heuristic availability wins over judge precision.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting relevance service...")

	if !s.weights.Balanced() {
		s.logger.Warn(ctx, "analyzer weights do not sum to 1, scores will still normalize",
			logger.Float64("sum", s.weights.Sum()))
	}

	var judge analyzer.Analyzer
	if s.judgeEnabled {
		client, err := llm.NewClient(s.judgeConfig)
		if err != nil {
			s.logger.Warn(ctx, "model judge disabled: transport could not be built",
				logger.Error(err))
		} else {
			judge = analyzer.NewModelJudge(client, s.assistantName, s.weights.ModelJudge)
		}
	}

	engineOpts := []scoring.Option{
		scoring.WithFastAnalyzers(
			analyzer.NewLexicalAddress(s.assistantName, s.aliases, s.weights.LexicalAddress),
			analyzer.NewSyntax(s.weights.Syntax),
			analyzer.NewFlow(s.historyWindow, s.weights.Flow),
			analyzer.NewTopicalSimilarity(s.weights.TopicalSimilarity, s.fullWeightTurns),
		),
		scoring.WithLogger(s.logger.Named("scoring")),
	}
	if judge != nil {
		engineOpts = append(engineOpts, scoring.WithJudge(judge))
	}
	s.engine = scoring.NewEngine(engineOpts...)

	s.history = repository.NewHistoryStore(repository.WithCapacity(s.historySize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = subqueue.NewInMemoryQueue(
		subqueue.WithCapacity(s.queueSize),
		subqueue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.history)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "relevance service started",
		logger.String("assistant", s.assistantName),
		logger.Bool("modelJudge", judge != nil),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("historySize", s.historySize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping relevance service...")

	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.history != nil {
		_ = s.history.Close()
	}

	s.started = false
	s.logger.Info(ctx, "relevance service stopped")
}

// Score runs the engine synchronously under the request timeout and records
// the outcome in the history.
func (s *Service) Score(ctx context.Context, conv conversation.Conversation) (scoring.Outcome, error) {
	sctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	out, err := s.engine.Score(sctx, conv)
	if err != nil {
		return scoring.Outcome{}, err
	}
	metrics.RecordRequestScored("sync")

	rec := repository.Record{
		ID:           uuid.NewString(),
		Conversation: conv,
		Outcome:      out,
		ScoredAt:     time.Now(),
	}
	if err := s.history.Put(sctx, rec); err != nil {
		s.logger.Warn(ctx, "failed to record outcome", logger.Error(err))
	}
	return out, nil
}

// SeenAndRecord atomically checks whether a request id was seen and records
// it if not. Returns true when the id was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateSubmission()
	}
	return seen
}

// Unrecord forgets a request id so the submission can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a conversation for asynchronous scoring.
func (s *Service) Enqueue(ctx context.Context, id string, conv conversation.Conversation) bool {
	return s.queue.Enqueue(ctx, subqueue.Job{
		ID:           id,
		Conversation: conv,
		SubmittedAt:  time.Now(),
	})
}

// NewRequestID mints an id for submissions that did not carry one.
func (s *Service) NewRequestID() string {
	return uuid.NewString()
}

// Result returns the stored outcome for a submission id.
func (s *Service) Result(ctx context.Context, id string) (repository.Record, error) {
	return s.history.Get(ctx, id)
}

// Recent returns up to limit stored outcomes, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]repository.Record, error) {
	return s.history.Recent(ctx, limit)
}

// Size returns the current number of tracked request ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"assistant":   s.assistantName,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"historySize": s.historySize,
	}
	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["storedResults"] = s.history.Count(ctx)
		stats["trackedIds"] = s.Size()
	}
	return stats
}
