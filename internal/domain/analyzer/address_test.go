package analyzer_test

import (
	"context"
	"testing"

	"github.com/miraivoice/heed/internal/domain/analyzer"
	"github.com/miraivoice/heed/internal/domain/conversation"
	. "github.com/smartystreets/goconvey/convey"
)

func userTurn(content string) conversation.Conversation {
	return conversation.Conversation{{Role: conversation.RoleUser, Content: content}}
}

func TestLexicalAddress(t *testing.T) {
	Convey("Given a lexical address analyzer for Mirai with alias Mira", t, func() {
		a := analyzer.NewLexicalAddress("Mirai", []string{"Mira"}, 0.25)
		ctx := context.Background()

		So(a.Name(), ShouldEqual, analyzer.NameLexicalAddress)
		So(a.BaseWeight(), ShouldEqual, 0.25)

		Convey("When the user greets the assistant by name", func() {
			res, err := a.Analyze(ctx, userTurn("Hey Mirai, what's the weather like today?"))

			Convey("Then it scores a direct address", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 10)
				So(res.Confidence, ShouldEqual, 0.9)
			})
		})

		Convey("When the name carries vocative punctuation", func() {
			res, err := a.Analyze(ctx, userTurn("Mirai, set a timer for ten minutes"))

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 10)
		})

		Convey("When the user addresses an alias", func() {
			res, err := a.Analyze(ctx, userTurn("Mira, can you play some music?"))

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 8)
		})

		Convey("When the assistant is talked about in the third person", func() {
			Convey("With a possessive", func() {
				res, err := a.Analyze(ctx, userTurn("Yeah, Mirai's been kinda useful actually."))

				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 1)
				So(res.Confidence, ShouldEqual, 0.9)
			})

			Convey("As the object of a past action", func() {
				res, err := a.Analyze(ctx, userTurn("Ugh, I should've asked Mirai to remind me about that meeting..."))

				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 1)
			})

			Convey("With a descriptive verb", func() {
				res, err := a.Analyze(ctx, userTurn("Mirai is pretty good at this"))

				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 1)
			})
		})

		Convey("When a third-person frame and a direct frame both match", func() {
			res, err := a.Analyze(ctx, userTurn("I told Mirai to stop but it kept going, Mirai can you stop"))

			Convey("Then the third-person reading wins", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 1)
			})
		})

		Convey("When there is a nameless appeal", func() {
			res, err := a.Analyze(ctx, userTurn("can you turn off the lights"))

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 6)
			So(res.Confidence, ShouldEqual, 0.7)
		})

		Convey("When the name appears without an address context", func() {
			res, err := a.Analyze(ctx, userTurn("the word mirai sounds nice"))

			Convey("Then a descriptive frame still reads as third person", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 1)
			})
		})

		Convey("When no indicator is present", func() {
			res, err := a.Analyze(ctx, userTurn("the lights in the kitchen are flickering"))

			Convey("Then it scores zero at near-zero confidence", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 0)
				So(res.Confidence, ShouldEqual, 0.1)
			})
		})

		Convey("When the last turn is from the assistant", func() {
			conv := conversation.Conversation{
				{Role: conversation.RoleUser, Content: "Hey Mirai"},
				{Role: conversation.RoleAssistant, Content: "Yes?"},
			}
			res, err := a.Analyze(ctx, conv)

			Convey("Then it skips with full confidence", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 0)
				So(res.Confidence, ShouldEqual, 1.0)
			})
		})
	})
}
