package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/miraivoice/heed/internal/adapters/mq/queue"
	"github.com/miraivoice/heed/internal/adapters/mq/worker"
	"github.com/miraivoice/heed/internal/adapters/repository"
	"github.com/miraivoice/heed/internal/domain/conversation"
	"github.com/miraivoice/heed/internal/domain/scoring"
	"github.com/miraivoice/heed/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubScorer struct {
	score float64
	err   error
}

func (s *stubScorer) Score(_ context.Context, _ conversation.Conversation) (scoring.Outcome, error) {
	if s.err != nil {
		return scoring.Outcome{}, s.err
	}
	return scoring.Outcome{Score: s.score, Reasoning: "stubbed"}, nil
}

type memRecorder struct {
	mu   sync.Mutex
	recs map[string]repository.Record
}

func newMemRecorder() *memRecorder {
	return &memRecorder{recs: make(map[string]repository.Record)}
}

func (r *memRecorder) Put(_ context.Context, rec repository.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.ID] = rec
	return nil
}

func (r *memRecorder) get(id string) (repository.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	return rec, ok
}

func (r *memRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func submission(id string) queue.Job {
	return queue.Job{
		ID: id,
		Conversation: conversation.Conversation{
			{Role: conversation.RoleUser, Content: "Hey Mirai, what's up"},
		},
		SubmittedAt: time.Now(),
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over a queue", t, func() {
		ctx := context.Background()

		Convey("When jobs are enqueued", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(16))
			rec := newMemRecorder()
			w := worker.NewWorker(q, &stubScorer{score: 8.5}, rec, worker.WithName("test-worker"))
			go w.Run(ctx)
			defer func() {
				q.Close()
				sctx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				_ = w.Shutdown(sctx)
			}()

			So(q.Enqueue(ctx, submission("s-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("s-2")), ShouldBeTrue)

			Convey("Then outcomes are recorded", func() {
				So(waitFor(func() bool { return rec.len() == 2 }), ShouldBeTrue)

				stored, ok := rec.get("s-1")
				So(ok, ShouldBeTrue)
				So(stored.Outcome.Score, ShouldEqual, 8.5)
				So(stored.Conversation, ShouldHaveLength, 1)
				So(stored.ScoredAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When scoring fails", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(16))
			rec := newMemRecorder()
			w := worker.NewWorker(q, &stubScorer{err: errors.New("boom")}, rec)
			go w.Run(ctx)
			defer func() {
				q.Close()
				sctx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				_ = w.Shutdown(sctx)
			}()

			So(q.Enqueue(ctx, submission("s-bad")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("s-bad-2")), ShouldBeTrue)

			Convey("Then nothing is recorded and the worker keeps running", func() {
				So(waitFor(func() bool { return q.Len(ctx) == 0 }), ShouldBeTrue)
				So(rec.len(), ShouldEqual, 0)
			})
		})

		Convey("When the queue closes", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(16))
			rec := newMemRecorder()
			w := worker.NewWorker(q, &stubScorer{score: 5}, rec)

			done := make(chan struct{})
			go func() {
				w.Run(ctx)
				close(done)
			}()

			So(q.Enqueue(ctx, submission("s-1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then the worker drains and exits", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not exit after queue close")
				}
				So(waitFor(func() bool { return rec.len() == 1 }), ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := newMemRecorder()
		p := worker.NewPool(4, q, &stubScorer{score: 6.5}, rec)

		So(p.Size(), ShouldEqual, 4)

		p.Start(ctx)
		defer func() {
			q.Close()
			p.Stop()
		}()

		Convey("When many jobs are enqueued", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, submission("p-"+string(rune('a'+i)))), ShouldBeTrue)
			}

			Convey("Then all of them get scored", func() {
				So(waitFor(func() bool { return rec.len() == 20 }), ShouldBeTrue)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	Convey("Given a non-positive worker count", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		defer q.Close()
		p := worker.NewPool(0, q, &stubScorer{score: 1}, newMemRecorder())

		Convey("Then the pool sizes itself from the CPU count", func() {
			So(p.Size(), ShouldBeGreaterThan, 0)
		})
	})
}
