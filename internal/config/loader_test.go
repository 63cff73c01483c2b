package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/bodytrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BODYTRACK_ADDR", ":8080")
			_ = os.Setenv("BODYTRACK_ENDPOINT_URL", "https://ingest.example.com/bodies?key=abc")
			_ = os.Setenv("BODYTRACK_QUEUE_SIZE", "128")
			_ = os.Setenv("BODYTRACK_THROTTLE_INTERVAL_MS", "250")
			_ = os.Setenv("BODYTRACK_MAX_SENDS_PER_SEC", "2.5")
			_ = os.Setenv("BODYTRACK_SOURCE", "sim")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EndpointURL, convey.ShouldEqual, "https://ingest.example.com/bodies?key=abc")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.ThrottleIntervalMS, convey.ShouldEqual, 250)
				convey.So(cfg.MaxSendsPerSec, convey.ShouldEqual, 2.5)
				convey.So(cfg.Source, convey.ShouldEqual, config.SourceSim)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
worker_count: 2
source: sim
sim_bodies: 5
sim_frame_rate: 15
`)
			_ = os.Setenv("BODYTRACK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.SimBodies, convey.ShouldEqual, 5)
				convey.So(cfg.SimFrameRate, convey.ShouldEqual, 15.0)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
addr: ":9090"
queue_size: 32
`)
			_ = os.Setenv("BODYTRACK_CONFIG", tmpFile)
			_ = os.Setenv("BODYTRACK_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("BODYTRACK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("BODYTRACK_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("BODYTRACK_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown source", func() {
			_ = os.Setenv("BODYTRACK_SOURCE", "kinect")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bodytrack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"BODYTRACK_CONFIG",
		"BODYTRACK_ADDR",
		"BODYTRACK_ENDPOINT_URL",
		"BODYTRACK_QUEUE_SIZE",
		"BODYTRACK_WORKER_COUNT",
		"BODYTRACK_THROTTLE_INTERVAL_MS",
		"BODYTRACK_MAX_SENDS_PER_SEC",
		"BODYTRACK_SOURCE",
	} {
		_ = os.Unsetenv(key)
	}
}
