package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/BenGiese22/should-i-race-this-sub003/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func notice(id, driver string) queue.Notice {
	return queue.Notice{NoticeID: id, DriverID: driver, ReceivedAt: time.Now()}
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()

	Convey("Given an open queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))

		Convey("When notices are enqueued", func() {
			So(q.Enqueue(ctx, notice("n-1", "driver-001")), ShouldBeTrue)
			So(q.Enqueue(ctx, notice("n-2", "driver-002")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then dequeue delivers them in order", func() {
				out := q.Dequeue(ctx)
				first := <-out
				second := <-out
				So(first.NoticeID, ShouldEqual, "n-1")
				So(second.NoticeID, ShouldEqual, "n-2")
			})
		})
	})
}

func TestCapacity(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		So(q.Enqueue(ctx, notice("n-1", "driver-001")), ShouldBeTrue)
		So(q.Enqueue(ctx, notice("n-2", "driver-002")), ShouldBeTrue)

		Convey("When a third notice arrives", func() {
			ok := q.Enqueue(ctx, notice("n-3", "driver-003"))

			Convey("Then it is rejected and the buffer is unchanged", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When a slot frees up", func() {
			out := q.Dequeue(ctx)
			<-out

			Convey("Then enqueue succeeds again", func() {
				So(q.Enqueue(ctx, notice("n-3", "driver-003")), ShouldBeTrue)
			})
		})
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue holding one notice", t, func() {
		q := queue.NewInMemoryQueue()
		So(q.Enqueue(ctx, notice("n-1", "driver-001")), ShouldBeTrue)
		out := q.Dequeue(ctx)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects new notices", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, notice("n-2", "driver-002")), ShouldBeFalse)
			})

			Convey("Then the dequeue channel drains and closes", func() {
				n, ok := <-out
				So(ok, ShouldBeTrue)
				So(n.NoticeID, ShouldEqual, "n-1")

				_, ok = <-out
				So(ok, ShouldBeFalse)
			})

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
