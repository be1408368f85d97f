package queue

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/domain/model"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, model.Job{Kind: model.JobReconcileMilestone, MilestoneID: "M1"}), ShouldBeNil)
			So(q.Enqueue(ctx, model.Job{Kind: model.JobReconcileMilestone, MilestoneID: "M2"}), ShouldBeNil)

			Convey("Then a third is rejected", func() {
				err := q.Enqueue(ctx, model.Job{Kind: model.JobReconcileMilestone, MilestoneID: "M3"})
				So(errors.Is(err, ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then jobs come out in order with IDs assigned", func() {
				first := <-q.Dequeue()
				second := <-q.Dequeue()
				So(first.MilestoneID, ShouldEqual, "M1")
				So(second.MilestoneID, ShouldEqual, "M2")
				So(first.JobID, ShouldNotBeEmpty)
				So(first.EnqueuedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, model.Job{MilestoneID: "M1"}), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue fails and remaining jobs drain", func() {
				So(errors.Is(q.Enqueue(ctx, model.Job{}), ErrClosed), ShouldBeTrue)
				job, ok := <-q.Dequeue()
				So(ok, ShouldBeTrue)
				So(job.MilestoneID, ShouldEqual, "M1")
				_, ok = <-q.Dequeue()
				So(ok, ShouldBeFalse)
			})
		})
	})
}
