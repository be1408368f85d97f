package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/rgtrack/internal/app"
	"github.com/okian/rgtrack/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(io.Discard)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports sensible defaults before start", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldBeGreaterThan, 0)
			So(stats["queueSize"], ShouldEqual, 10_000)
			So(stats["serverVersion"], ShouldEqual, "dev")
		})

		Convey("Then accessors refuse to hand out unstarted components", func() {
			_, err := svc.Deps()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, err = svc.Services()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithServerVersion("1.2.3"),
			service.WithWorkerCount(-1),
		)

		Convey("Then valid options are applied and invalid ones ignored", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 50)
			So(stats["dedupeSize"], ShouldEqual, 25)
			So(stats["serverVersion"], ShouldEqual, "1.2.3")
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service seeded from a catalog", t, func() {
		svc := service.New(service.WithCatalog("testdata/catalog.json"), service.WithWorkerCount(2))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := svc.Start(ctx)

		Convey("Then it starts successfully", func() {
			So(err, ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("And starting again is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("And the catalog charts are stored", func() {
			chart, err := svc.Store().FindChartByID(ctx, "i-spa")
			So(err, ShouldBeNil)
			So(chart.Difficulty, ShouldEqual, "ANOTHER")
		})

		Convey("And stats include the store counters", func() {
			stats := svc.GetStats()
			So(stats["scores"], ShouldEqual, 0)
			So(stats["personalBests"], ShouldEqual, 0)
			So(stats["queueLength"], ShouldEqual, 0)
		})

		Convey("And every dependency is wired", func() {
			deps, err := svc.Deps()
			So(err, ShouldBeNil)
			So(deps.Store, ShouldNotBeNil)
			So(deps.Charts, ShouldNotBeNil)
			So(deps.Targets, ShouldNotBeNil)
			So(deps.Importer, ShouldNotBeNil)
			So(deps.Parser, ShouldNotBeNil)
			So(deps.Jobs, ShouldNotBeNil)
			So(deps.Stats, ShouldNotBeNil)
		})

		Convey("And the pool, dispatcher and announcer are supervised", func() {
			services, err := svc.Services()
			So(err, ShouldBeNil)
			So(services, ShouldHaveLength, 3)
		})
	})

	Convey("Given a service pointing at a missing catalog", t, func() {
		svc := service.New(service.WithCatalog("testdata/nope.json"))

		Convey("Then start fails", func() {
			err := svc.Start(context.Background())
			So(err, ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When stopping twice", func() {
			svc.Stop()

			Convey("Then the second stop does nothing", func() {
				So(func() { svc.Stop() }, ShouldNotPanic)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a service that never started", t, func() {
		svc := service.New()

		Convey("Then stop is safe", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})
}
