package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/loadboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.FeedType, convey.ShouldEqual, config.FeedEventLog)
			convey.So(cfg.CacheTTL, convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.RefreshInterval, convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.AutoRefresh, convey.ShouldBeTrue)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.ReconstructParallelism, convey.ShouldEqual, runtime.NumCPU())
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with a single bad value", t, func() {
		cases := map[string]func(*config.Config){
			"addr":                    func(c *config.Config) { c.Addr = "" },
			"log_format":              func(c *config.Config) { c.LogFormat = "xml" },
			"cache_ttl":               func(c *config.Config) { c.CacheTTL = -time.Second },
			"refresh_interval":        func(c *config.Config) { c.RefreshInterval = 0 },
			"queue_size":              func(c *config.Config) { c.EventQueueSize = 0 },
			"worker_count":            func(c *config.Config) { c.WorkerCount = -1 },
			"feed_type":               func(c *config.Config) { c.FeedType = "kafka" },
			"feed_url":                func(c *config.Config) { c.FeedType = config.FeedCSVURL },
			"feed_path":               func(c *config.Config) { c.FeedType = config.FeedCSVFile },
			"reconstruct_parallelism": func(c *config.Config) { c.ReconstructParallelism = 0 },
		}

		for key, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+key+" is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, key)
			})
		}

		convey.Convey("When auto refresh is off a zero interval is accepted", func() {
			cfg := config.New()
			cfg.AutoRefresh = false
			cfg.RefreshInterval = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
