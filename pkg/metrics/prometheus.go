// Package metrics provides Prometheus metrics for the heed relevance service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// scoreBuckets covers the fused score range [1,10].
var scoreBuckets = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the heed service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core scoring metrics
	requestsScored  *prometheus.CounterVec
	scoringDuration prometheus.Histogram
	fusedScore      prometheus.Histogram
	decisions       *prometheus.CounterVec

	// Analyzer metrics
	analyzerLatency  *prometheus.HistogramVec
	analyzerFailures *prometheus.CounterVec

	// Model-judge metrics
	judgeInvocations *prometheus.CounterVec
	judgeSkips       *prometheus.CounterVec
	judgeFailures    prometheus.Counter
	judgeLatency     prometheus.Histogram

	// Async pipeline metrics
	queueSize           prometheus.Gauge
	queueCapacity       prometheus.Gauge
	queueUtilization    prometheus.Gauge
	queueEnqueues       prometheus.Counter
	queueDequeues       prometheus.Counter
	queueEnqueueErrors  prometheus.Counter
	workerCount         prometheus.Gauge
	workerLatency       prometheus.Histogram
	workerErrors        prometheus.Counter
	duplicateSubmits    prometheus.Counter
	historySize         prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "heed",
		subsystem:        "relevance",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric inventory is inherently long
	auto := promauto.With(m.registry)

	m.requestsScored = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "requests_scored_total",
			Help:      "Total number of conversations scored, labeled by submission mode",
		},
		[]string{"mode"},
	)

	m.scoringDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_duration_milliseconds",
		Help:      "End-to-end scoring pipeline duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})

	m.fusedScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fused_score",
		Help:      "Distribution of final fused relevance scores",
		Buckets:   scoreBuckets,
	})

	m.decisions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decisions_total",
			Help:      "Total scoring decisions by action (respond, maybe_respond, ignore)",
		},
		[]string{"action"},
	)

	m.analyzerLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analyzer_latency_milliseconds",
			Help:      "Per-analyzer latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"analyzer"},
	)

	m.analyzerFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "analyzer_failures_total",
			Help:      "Total analyzer faults replaced with neutral fallback results",
		},
		[]string{"analyzer"},
	)

	m.judgeInvocations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "judge_invocations_total",
			Help:      "Total model-judge invocations by decision branch",
		},
		[]string{"branch"},
	)

	m.judgeSkips = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "judge_skips_total",
			Help:      "Total model-judge skips by decision branch",
		},
		[]string{"branch"},
	)

	m.judgeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_failures_total",
		Help:      "Total model-judge calls that fell back to the heuristic score",
	})

	m.judgeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_latency_milliseconds",
		Help:      "Model-judge round-trip latency in milliseconds",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 90000},
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the async scoring queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum async scoring queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of scoring jobs enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of scoring jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue failures (backpressure or closed queue)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of async scoring workers",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Async worker job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of async worker errors",
	})

	m.duplicateSubmits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Total duplicate async submissions detected",
	})

	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_size",
		Help:      "Number of outcomes retained in the history store",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordRequestScored increments the scored-requests counter for a mode ("sync" or "async").
func RecordRequestScored(mode string) {
	globalManager.requestsScored.WithLabelValues(mode).Inc()
}

// RecordScoringDuration records the end-to-end scoring pipeline duration.
func RecordScoringDuration(durationMs float64) {
	globalManager.scoringDuration.Observe(durationMs)
}

// RecordFusedScore records a final fused score.
func RecordFusedScore(score float64) {
	globalManager.fusedScore.Observe(score)
}

// RecordDecision increments the decision counter for an action.
func RecordDecision(action string) {
	globalManager.decisions.WithLabelValues(action).Inc()
}

// RecordAnalyzerLatency records a single analyzer's latency.
func RecordAnalyzerLatency(analyzer string, latencyMs float64) {
	globalManager.analyzerLatency.WithLabelValues(analyzer).Observe(latencyMs)
}

// RecordAnalyzerFailure increments the analyzer fault counter.
func RecordAnalyzerFailure(analyzer string) {
	globalManager.analyzerFailures.WithLabelValues(analyzer).Inc()
}

// RecordJudgeInvocation increments the judge invocation counter for a decision branch.
func RecordJudgeInvocation(branch string) {
	globalManager.judgeInvocations.WithLabelValues(branch).Inc()
}

// RecordJudgeSkip increments the judge skip counter for a decision branch.
func RecordJudgeSkip(branch string) {
	globalManager.judgeSkips.WithLabelValues(branch).Inc()
}

// RecordJudgeFailure increments the judge failure counter.
func RecordJudgeFailure() {
	globalManager.judgeFailures.Inc()
}

// RecordJudgeLatency records the model-judge round-trip latency.
func RecordJudgeLatency(latencyMs float64) {
	globalManager.judgeLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordDuplicateSubmission increments the duplicate submission counter.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmits.Inc()
}

// UpdateHistorySize sets the history store size.
func UpdateHistorySize(size int) {
	globalManager.historySize.Set(float64(size))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
