package conversation_test

import (
	"testing"

	"github.com/miraivoice/heed/internal/domain/conversation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConversationAccessors(t *testing.T) {
	Convey("Given an empty conversation", t, func() {
		var conv conversation.Conversation

		Convey("Then Last reports absence", func() {
			_, ok := conv.Last()
			So(ok, ShouldBeFalse)
			So(conv.LastIsUser(), ShouldBeFalse)
		})

		Convey("Then LastAssistant reports absence", func() {
			_, ok := conv.LastAssistant()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a multi-turn conversation", t, func() {
		conv := conversation.Conversation{
			{Role: conversation.RoleUser, Content: "hi"},
			{Role: conversation.RoleAssistant, Content: "hello, how can I help?"},
			{Role: conversation.RoleUser, Content: "what time is it"},
		}

		Convey("When reading the last turn", func() {
			last, ok := conv.Last()

			Convey("Then it is the user's final message", func() {
				So(ok, ShouldBeTrue)
				So(last.Role, ShouldEqual, conversation.RoleUser)
				So(last.Content, ShouldEqual, "what time is it")
				So(conv.LastIsUser(), ShouldBeTrue)
			})
		})

		Convey("When looking up the last assistant turn", func() {
			msg, ok := conv.LastAssistant()

			Convey("Then it skips the final user turn", func() {
				So(ok, ShouldBeTrue)
				So(msg.Content, ShouldEqual, "hello, how can I help?")
			})
		})

		Convey("When counting roles", func() {
			users, assistants := conv.CountRoles()

			Convey("Then both sides are counted", func() {
				So(users, ShouldEqual, 2)
				So(assistants, ShouldEqual, 1)
			})
		})

		Convey("When taking a tail window", func() {
			So(len(conv.Tail(2)), ShouldEqual, 2)
			So(len(conv.Tail(10)), ShouldEqual, 3)
			So(len(conv.Tail(0)), ShouldEqual, 3)
			So(conv.Tail(1)[0].Content, ShouldEqual, "what time is it")
		})
	})

	Convey("Given role validation", t, func() {
		So(conversation.RoleUser.Valid(), ShouldBeTrue)
		So(conversation.RoleAssistant.Valid(), ShouldBeTrue)
		So(conversation.Role("system").Valid(), ShouldBeFalse)
	})
}
