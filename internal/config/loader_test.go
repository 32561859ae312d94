package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/loadboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.FeedType, convey.ShouldEqual, config.FeedEventLog)
				convey.So(cfg.DBPath, convey.ShouldEqual, "loadboard.db")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LOADBOARD_ADDR", ":8080")
			_ = os.Setenv("LOADBOARD_QUEUE_SIZE", "500")
			_ = os.Setenv("LOADBOARD_CACHE_TTL", "15s")
			_ = os.Setenv("LOADBOARD_AUTO_REFRESH", "false")
			_ = os.Setenv("LOADBOARD_FEED_TYPE", "CSV_FILE")
			_ = os.Setenv("LOADBOARD_FEED_PATH", "/tmp/events.csv")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.CacheTTL, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.AutoRefresh, convey.ShouldBeFalse)
				convey.So(cfg.FeedType, convey.ShouldEqual, config.FeedCSVFile)
				convey.So(cfg.FeedPath, convey.ShouldEqual, "/tmp/events.csv")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
feed_type: csv_url
feed_url: "https://example.com/export?format=csv"
feed_max_retries: 5
refresh_interval: 30s
worker_count: 8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LOADBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.FeedType, convey.ShouldEqual, config.FeedCSVURL)
				convey.So(cfg.FeedURL, convey.ShouldEqual, "https://example.com/export?format=csv")
				convey.So(cfg.FeedMaxRetries, convey.ShouldEqual, 5)
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When both file and env set a key", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LOADBOARD_CONFIG", tmpFile)
			_ = os.Setenv("LOADBOARD_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LOADBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LOADBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file selects a feed without its location", func() {
			tmpFile := createTempConfigFile("feed_type: csv_file\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LOADBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "feed_path")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "LOADBOARD_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "loadboard-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
