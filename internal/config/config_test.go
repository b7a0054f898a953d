package config_test

import (
	"runtime"
	"testing"

	"github.com/miraivoice/heed/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("Then service defaults should be sane", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.AssistantName, convey.ShouldEqual, "Mirai")
			convey.So(cfg.EnableModelJudge, convey.ShouldBeTrue)
			convey.So(cfg.MaxHistoryWindow, convey.ShouldEqual, 10)
			convey.So(cfg.FullWeightTurnCount, convey.ShouldEqual, 6)
			convey.So(cfg.RequestTimeoutSeconds, convey.ShouldEqual, 90)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
		})

		convey.Convey("Then the default weight table should sum to ~1.0", func() {
			convey.So(cfg.Weights.Balanced(), convey.ShouldBeTrue)
			convey.So(cfg.Weights.Sum(), convey.ShouldAlmostEqual, 1.0, 0.0001)
		})

		convey.Convey("Then judge defaults should be populated", func() {
			convey.So(cfg.Judge.Model, convey.ShouldNotBeEmpty)
			convey.So(cfg.Judge.MaxOutputTokens, convey.ShouldBeGreaterThan, 0)
			convey.So(cfg.Judge.TimeoutSeconds, convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestWeightsBalance(t *testing.T) {
	convey.Convey("Given weight tables", t, func() {
		convey.Convey("When weights sum within tolerance of 1.0", func() {
			w := config.Weights{LexicalAddress: 0.28, Syntax: 0.25, Flow: 0.20, TopicalSimilarity: 0.10, ModelJudge: 0.20}

			convey.Convey("Then the table is balanced", func() {
				convey.So(w.Balanced(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When weights sum outside tolerance", func() {
			w := config.Weights{LexicalAddress: 0.5, Syntax: 0.5, Flow: 0.5}

			convey.Convey("Then the table is unbalanced", func() {
				convey.So(w.Balanced(), convey.ShouldBeFalse)
			})
		})
	})
}
