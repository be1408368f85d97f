package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const catalog = "../../internal/app/testdata/catalog.json"

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--quiet"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStoreCommands(t *testing.T) {
	convey.Convey("Given an empty data directory", t, func() {
		dir := t.TempDir()

		convey.Convey("When seeding the catalog", func() {
			out, err := execute("--data-dir", dir, "seed", catalog)

			convey.Convey("Then songs and charts are reported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Catalog loaded")
				convey.So(out, convey.ShouldContainSubstring, "charts")
			})

			convey.Convey("And seeding again is idempotent", func() {
				_, err := execute("--data-dir", dir, "seed", catalog)
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And dedupe finds nothing to remove", func() {
				out, err := execute("--data-dir", dir, "dedupe-scores", "--dry-run")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Duplicate scores")
			})
		})

		convey.Convey("When the catalog file is missing", func() {
			_, err := execute("--data-dir", dir, "seed", "nope.json")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given no data directory", t, func() {
		t.Setenv("RGTRACK_DATA_DIR", "")
		_, err := execute("--data-dir", "", "dedupe-scores")

		convey.Convey("Then store commands refuse to run", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "--data-dir")
		})
	})
}

func TestReplayCommand(t *testing.T) {
	convey.Convey("Given the replay command", t, func() {
		convey.Convey("When no chart is given", func() {
			_, err := execute("replay")

			convey.Convey("Then the required flag is enforced", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a chart reference is malformed", func() {
			_, err := execute("replay", "--chart", "1000:ANOTHER")

			convey.Convey("Then it is rejected before any request", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "invalid chart reference")
			})
		})
	})
}
