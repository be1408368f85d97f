package logger

import (
	"bytes"
	"context"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with the default writer", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get and Slog return usable loggers", func() {
				So(Get(), ShouldNotBeNil)
				So(Slog(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized with a nil writer", func() {
			err := InitWithWriter(nil)

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging an info message with fields", func() {
			Get().Info(ctx, "score imported", String("scoreID", "R123"), Int("userID", 1))

			Convey("Then the message and fields are written with the caller", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "score imported")
				So(out, ShouldContainSubstring, "scoreID=R123")
				So(out, ShouldContainSubstring, "userID=1")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging a severe message", func() {
			Named("milestones").Severe(ctx, "corrupt subscription")

			Convey("Then it is tagged with severity and component", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "level=ERROR")
				So(out, ShouldContainSubstring, "severity=severe")
				So(out, ShouldContainSubstring, "component=milestones")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Warn(ctx, "hidden")
			Get().Error(ctx, "visible")

			Convey("Then lower levels are suppressed", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "visible")
			})
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("When an unknown level is set", func() {
			err := SetLevelString("loud")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Reset(func() { _ = InitWithWriter(io.Discard) })
	})
}
