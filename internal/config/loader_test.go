package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/herobot/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with only the required token", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.StatsToken, convey.ShouldEqual, "secret")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.TopN, convey.ShouldEqual, 5)
				convey.So(cfg.WinRateWindow, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the token is missing", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "stats_token")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_ADDR", ":8080")
			_ = os.Setenv("HEROBOT_QUEUE_SIZE", "64")
			_ = os.Setenv("HEROBOT_WORKER_COUNT", "3")
			_ = os.Setenv("HEROBOT_LOG_FORMAT", "json")
			_ = os.Setenv("HEROBOT_HTTP_TIMEOUT", "2s")
			_ = os.Setenv("HEROBOT_WEBHOOK_URL", "http://chat.local/hook")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 2*time.Second)
				convey.So(cfg.WebhookURL, convey.ShouldEqual, "http://chat.local/hook")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# file layer
addr: ":9090"
stats_token: from-file
queue_size: 300
top_n: 3
win_rate_window: 2
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HEROBOT_CONFIG", tmpFile)
			_ = os.Setenv("HEROBOT_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StatsToken, convey.ShouldEqual, "from-file")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.TopN, convey.ShouldEqual, 3)
				convey.So(cfg.WinRateWindow, convey.ShouldEqual, 2)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HEROBOT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HEROBOT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When values fail validation", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_TOP_N", "0")
			_ = os.Setenv("HEROBOT_LOG_FORMAT", "xml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should name the offending key", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_format")
			})
		})

		convey.Convey("When the http timeout is zero", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_HTTP_TIMEOUT", "0s")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(cfg, convey.ShouldBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "http_timeout")
		})

		convey.Convey("When the fuzzy threshold is set", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_FUZZY_THRESHOLD", "0.85")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.FuzzyThreshold, convey.ShouldEqual, 0.85)
		})

		convey.Convey("When the stats endpoint is not a URL", func() {
			_ = os.Setenv("HEROBOT_STATS_TOKEN", "secret")
			_ = os.Setenv("HEROBOT_STATS_ENDPOINT", "not a url")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "stats_endpoint")
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"HEROBOT_CONFIG",
		"HEROBOT_ADDR",
		"HEROBOT_STATS_TOKEN",
		"HEROBOT_STATS_ENDPOINT",
		"HEROBOT_QUEUE_SIZE",
		"HEROBOT_WORKER_COUNT",
		"HEROBOT_TOP_N",
		"HEROBOT_LOG_FORMAT",
		"HEROBOT_HTTP_TIMEOUT",
		"HEROBOT_WEBHOOK_URL",
		"HEROBOT_FUZZY_THRESHOLD",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "herobot-config-*.yaml")
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
