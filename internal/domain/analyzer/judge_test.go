package analyzer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/miraivoice/heed/internal/domain/analyzer"
	"github.com/miraivoice/heed/internal/domain/conversation"
	. "github.com/smartystreets/goconvey/convey"
)

type stubCompleter struct {
	reply   string
	err     error
	lastReq analyzer.CompletionRequest
	called  int
}

func (s *stubCompleter) Complete(_ context.Context, req analyzer.CompletionRequest) (string, error) {
	s.called++
	s.lastReq = req
	return s.reply, s.err
}

func TestModelJudge(t *testing.T) {
	Convey("Given a model judge for Mirai", t, func() {
		ctx := context.Background()
		conv := conversation.Conversation{
			{Role: conversation.RoleAssistant, Content: "Reminder set for your meeting at 2 PM."},
			{Role: conversation.RoleUser, Content: "Ugh, I should've asked Mirai to remind me about that meeting..."},
		}

		Convey("When the model replies with clean JSON", func() {
			stub := &stubCompleter{reply: `{"score": 2.5, "reasoning": "the user talks about the assistant", "confidence": 0.85}`}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			So(j.Name(), ShouldEqual, analyzer.NameModelJudge)
			So(j.BaseWeight(), ShouldEqual, 0.20)

			res, err := j.Analyze(ctx, conv)

			Convey("Then the verdict is adopted as-is", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 2.5)
				So(res.Confidence, ShouldEqual, 0.85)
				So(res.Reasoning, ShouldEqual, "the user talks about the assistant")
			})

			Convey("Then the prompt labels roles and flags the judged turn", func() {
				So(stub.lastReq.System, ShouldContainSubstring, "Mirai")
				So(stub.lastReq.User, ShouldContainSubstring, "Assistant: Reminder set")
				So(stub.lastReq.User, ShouldContainSubstring, ">>> User (turn under judgment):")
			})
		})

		Convey("When the JSON is wrapped in a code fence with prose", func() {
			stub := &stubCompleter{reply: "Here is my judgment:\n```json\n{\"score\": 8, \"reasoning\": \"direct question\", \"confidence\": 0.9}\n```"}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			res, err := j.Analyze(ctx, conv)

			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 8)
			So(res.Confidence, ShouldEqual, 0.9)
		})

		Convey("When the model answers in prose with a numeric score", func() {
			stub := &stubCompleter{reply: "I'd give this a score of 3 because the user is talking about the assistant."}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			res, err := j.Analyze(ctx, conv)

			Convey("Then the fallback scrape applies at half confidence", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 3)
				So(res.Confidence, ShouldEqual, 0.5)
			})
		})

		Convey("When the verdict is out of bounds", func() {
			stub := &stubCompleter{reply: `{"score": 14, "reasoning": "very sure", "confidence": 1.8}`}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			res, err := j.Analyze(ctx, conv)

			Convey("Then score and confidence are clamped", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 10)
				So(res.Confidence, ShouldEqual, 1.0)
			})
		})

		Convey("When the answer carries no score at all", func() {
			stub := &stubCompleter{reply: "I cannot evaluate this conversation."}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			res, err := j.Analyze(ctx, conv)

			Convey("Then the neutral unparsed verdict applies without error", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 5.0)
				So(res.Confidence, ShouldEqual, 0.3)
			})
		})

		Convey("When the transport fails", func() {
			stub := &stubCompleter{err: errors.New("connection refused")}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			_, err := j.Analyze(ctx, conv)

			Convey("Then the error propagates for the orchestrator to handle", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "model judge")
			})
		})

		Convey("When the conversation is longer than the context window", func() {
			long := conversation.Conversation{}
			for i := 0; i < 8; i++ {
				long = append(long, conversation.Message{Role: conversation.RoleUser, Content: "older turn"})
				long = append(long, conversation.Message{Role: conversation.RoleAssistant, Content: "older reply"})
			}
			long = append(long, conversation.Message{Role: conversation.RoleUser, Content: "the judged turn"})

			stub := &stubCompleter{reply: `{"score": 6, "reasoning": "ok", "confidence": 0.6}`}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			_, err := j.Analyze(ctx, long)

			Convey("Then only the trailing turns are rendered", func() {
				So(err, ShouldBeNil)
				So(strings.Count(stub.lastReq.User, "\n"), ShouldBeLessThanOrEqualTo, 6)
				So(stub.lastReq.User, ShouldContainSubstring, "the judged turn")
			})
		})

		Convey("When the last turn is from the assistant", func() {
			stub := &stubCompleter{}
			j := analyzer.NewModelJudge(stub, "Mirai", 0.20)

			res, err := j.Analyze(ctx, conversation.Conversation{
				{Role: conversation.RoleAssistant, Content: "anything else?"},
			})

			Convey("Then no completion is requested", func() {
				So(err, ShouldBeNil)
				So(res.Score, ShouldEqual, 0)
				So(stub.called, ShouldEqual, 0)
			})
		})
	})
}
