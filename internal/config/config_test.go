package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/rgtrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DataDir, convey.ShouldBeEmpty)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ImportConcurrency, convey.ShouldEqual, 16)
			convey.So(cfg.MaxRecentLimit, convey.ShouldEqual, 100)
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a broken field", t, func() {
		cases := map[string]func(*config.Config){
			"addr":                 func(c *config.Config) { c.Addr = " " },
			"queue_size":           func(c *config.Config) { c.QueueSize = 0 },
			"worker_count":         func(c *config.Config) { c.WorkerCount = -1 },
			"import_concurrency":   func(c *config.Config) { c.ImportConcurrency = 0 },
			"dedupe_size":          func(c *config.Config) { c.DedupeSize = 0 },
			"webhook_rate_per_sec": func(c *config.Config) { c.WebhookRatePerSec = 0 },
			"max_recent_limit":     func(c *config.Config) { c.MaxRecentLimit = 0 },
		}

		for field, breakIt := range cases {
			cfg := config.New()
			breakIt(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, field)
		}
	})
}
