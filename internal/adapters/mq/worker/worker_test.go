package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/mq/queue"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func TestPool(t *testing.T) {
	Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))

		var mu sync.Mutex
		seen := map[string]bool{}
		handler := HandlerFunc(func(_ context.Context, job model.Job) error {
			switch job.MilestoneID {
			case "boom":
				panic("exploded")
			case "fail":
				return errors.New("failed")
			}
			mu.Lock()
			seen[job.MilestoneID] = true
			mu.Unlock()
			return nil
		})
		pool := NewPool(q, handler, WithWorkers(3), WithJobTimeout(time.Second))

		ctx := context.Background()
		for _, id := range []string{"M1", "boom", "M2", "fail", "M3"} {
			So(q.Enqueue(ctx, model.Job{Kind: model.JobReconcileMilestone, MilestoneID: id}), ShouldBeNil)
		}

		Convey("When the queue is drained and closed", func() {
			So(q.Close(), ShouldBeNil)
			done := make(chan error, 1)
			go func() { done <- pool.Serve(ctx) }()

			Convey("Then every healthy job ran despite failures", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("pool did not stop", ShouldBeEmpty)
				}
				So(seen, ShouldResemble, map[string]bool{"M1": true, "M2": true, "M3": true})
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- pool.Serve(cctx) }()
			cancel()

			Convey("Then the pool stops with the context error", func() {
				select {
				case err := <-done:
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
				case <-time.After(2 * time.Second):
					So("pool did not stop", ShouldBeEmpty)
				}
			})
		})
	})
}
