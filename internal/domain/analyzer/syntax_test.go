package analyzer_test

import (
	"context"
	"testing"

	"github.com/miraivoice/heed/internal/domain/analyzer"
	"github.com/miraivoice/heed/internal/domain/conversation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSyntax(t *testing.T) {
	Convey("Given a syntax analyzer", t, func() {
		s := analyzer.NewSyntax(0.25)
		ctx := context.Background()

		So(s.Name(), ShouldEqual, analyzer.NameSyntax)
		So(s.BaseWeight(), ShouldEqual, 0.25)

		analyze := func(content string) analyzer.Result {
			res, err := s.Analyze(ctx, userTurn(content))
			So(err, ShouldBeNil)
			return res
		}

		Convey("When the turn is a second-person request", func() {
			res := analyze("Can you check my calendar for tomorrow?")

			Convey("Then the direct-address family wins over the question mark", func() {
				So(res.Score, ShouldEqual, 9)
				So(res.Confidence, ShouldBeGreaterThan, 0.6)
			})
		})

		Convey("When the turn opens with an interrogative", func() {
			res := analyze("what time does the store close")

			So(res.Score, ShouldEqual, 8)
		})

		Convey("When the turn only carries a question mark", func() {
			res := analyze("Hey Mirai, what's the weather like today?")

			So(res.Score, ShouldEqual, 7)
			So(res.Confidence, ShouldEqual, 0.6)
		})

		Convey("When the turn opens with an imperative", func() {
			res := analyze("turn off the kitchen lights")

			So(res.Score, ShouldEqual, 8)
		})

		Convey("When the turn is an acknowledgment", func() {
			res := analyze("thanks, that was exactly it")

			So(res.Score, ShouldEqual, 6)
		})

		Convey("When the turn opens tentatively", func() {
			res := analyze("Maybe sushi? But I don't know where to start.")

			Convey("Then the question-mark family outranks the opener", func() {
				So(res.Score, ShouldEqual, 7)
				So(res.Confidence, ShouldEqual, 0.75)
			})
		})

		Convey("When an acknowledgment trails off into self-talk", func() {
			res := analyze("Okay... what should I do next... maybe I'll just take a break for a bit.")

			Convey("Then no family fires and the score is neutral", func() {
				So(res.Score, ShouldEqual, 3)
				So(res.Confidence, ShouldEqual, 0.45)
			})
		})

		Convey("When the turn is third-person narration", func() {
			res := analyze("she said the package already shipped")

			So(res.Score, ShouldEqual, 1)
		})

		Convey("When the turn is very short", func() {
			res := analyze("the lights")

			Convey("Then confidence drops to the floor", func() {
				So(res.Score, ShouldEqual, 3)
				So(res.Confidence, ShouldEqual, 0.3)
			})
		})

		Convey("When the last turn is from the assistant", func() {
			conv := conversation.Conversation{
				{Role: conversation.RoleUser, Content: "hello"},
				{Role: conversation.RoleAssistant, Content: "hi there"},
			}
			res, err := s.Analyze(ctx, conv)

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 0)
			So(res.Confidence, ShouldEqual, 1.0)
		})
	})
}
