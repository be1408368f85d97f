package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func TestBulkSendNotification(t *testing.T) {
	Convey("Given a notifier over an in-memory store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx)
		So(err, ShouldBeNil)
		defer store.Close()
		n := New(store)

		body := model.NotificationBody{
			Type:    model.NotificationMilestoneChanged,
			Content: map[string]any{"milestoneID": "M1"},
		}

		Convey("When sending to several users", func() {
			err := n.BulkSendNotification(ctx, "The milestone changed", []int{1, 2, 2}, body)
			So(err, ShouldBeNil)

			Convey("Then each user has exactly one notification", func() {
				for _, id := range []int{1, 2} {
					got, err := store.ListNotifications(ctx, id, 10)
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 1)
					So(got[0].Title, ShouldEqual, "The milestone changed")
					So(got[0].Body.Type, ShouldEqual, model.NotificationMilestoneChanged)
					So(got[0].Read, ShouldBeFalse)
				}
			})

			Convey("Then other users get nothing", func() {
				got, err := store.ListNotifications(ctx, 3, 10)
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When sending to nobody", func() {
			err := n.BulkSendNotification(ctx, "x", nil, body)
			So(errors.Is(err, ErrNoRecipients), ShouldBeTrue)
		})

		Convey("When sending to one user", func() {
			So(n.SendNotification(ctx, "hello", 7, body), ShouldBeNil)
			got, err := store.ListNotifications(ctx, 7, 10)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
		})
	})
}
