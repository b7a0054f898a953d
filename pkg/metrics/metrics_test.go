package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording scoring metrics", func() {
			So(func() {
				RecordRequestScored("sync")
				RecordRequestScored("async")
				RecordScoringDuration(12.5)
				RecordFusedScore(7.2)
				RecordDecision("respond")
			}, ShouldNotPanic)
		})

		Convey("When recording analyzer and judge metrics", func() {
			So(func() {
				RecordAnalyzerLatency("lexical_address", 0.3)
				RecordAnalyzerFailure("syntax")
				RecordJudgeInvocation("ambiguous_band")
				RecordJudgeSkip("confident_fast_score")
				RecordJudgeFailure()
				RecordJudgeLatency(840)
			}, ShouldNotPanic)
		})

		Convey("When recording pipeline metrics", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.03)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(5.0)
				RecordWorkerError()
				RecordDuplicateSubmission()
				UpdateHistorySize(42)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("score", "POST", "200")
				RecordHTTPRequestDuration("score", "POST", "200", 3.1)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(17)
				RecordSystemGCPauseTime(0.7)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry should be gatherable", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
