// Package config defines station configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers a YAML file and BODYTRACK_* env vars over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Frame sources.
const (
	SourceZMQ = "zmq"
	SourceSim = "sim"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the metrics/stats HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EndpointURL is where snapshot documents are POSTed. Credentials, if
	// any, are embedded in the URL.
	EndpointURL string `koanf:"endpoint_url"`

	// ThrottleIntervalMS is the pause after every acquisition cycle.
	ThrottleIntervalMS int `koanf:"throttle_interval_ms"`

	// DeviceTimeoutMS bounds each device wait. Zero waits forever.
	DeviceTimeoutMS int `koanf:"device_timeout_ms"`

	// QueueSize bounds the number of documents awaiting delivery.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of delivery workers.
	WorkerCount int `koanf:"worker_count"`

	// SendTimeoutMS bounds a single POST.
	SendTimeoutMS int `koanf:"send_timeout_ms"`

	// MaxSendsPerSec caps the delivery rate. Zero means unlimited.
	MaxSendsPerSec float64 `koanf:"max_sends_per_sec"`

	// Source selects the frame source: zmq or sim.
	Source string `koanf:"source"`

	// ZMQEndpoint is the tracker bridge the zmq source connects to.
	ZMQEndpoint string `koanf:"zmq_endpoint"`

	// SimBodies and SimFrameRate drive the simulated source.
	SimBodies    int     `koanf:"sim_bodies"`
	SimFrameRate float64 `koanf:"sim_frame_rate"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		EndpointURL:        "http://127.0.0.1:8000/bodies",
		ThrottleIntervalMS: 1000,
		DeviceTimeoutMS:    0,
		QueueSize:          64,
		WorkerCount:        1,
		SendTimeoutMS:      10_000,
		MaxSendsPerSec:     0,
		Source:             SourceZMQ,
		ZMQEndpoint:        "tcp://127.0.0.1:5556",
		SimBodies:          3,
		SimFrameRate:       30,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.EndpointURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: endpoint_url %q must be an absolute url", ErrInvalidConfig, c.EndpointURL)
	}
	if c.ThrottleIntervalMS <= 0 {
		return fmt.Errorf("%w: throttle_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.DeviceTimeoutMS < 0 {
		return fmt.Errorf("%w: device_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.MaxSendsPerSec < 0 {
		return fmt.Errorf("%w: max_sends_per_sec must not be negative", ErrInvalidConfig)
	}
	switch c.Source {
	case SourceZMQ:
		if c.ZMQEndpoint == "" {
			return fmt.Errorf("%w: zmq_endpoint must not be empty", ErrInvalidConfig)
		}
	case SourceSim:
		if c.SimBodies < 0 || c.SimFrameRate <= 0 {
			return fmt.Errorf("%w: sim_bodies must not be negative and sim_frame_rate must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	return nil
}

// ThrottleInterval returns the pause between cycles.
func (c *Config) ThrottleInterval() time.Duration {
	return time.Duration(c.ThrottleIntervalMS) * time.Millisecond
}

// DeviceTimeout returns the device wait bound, or -1 to wait forever.
func (c *Config) DeviceTimeout() time.Duration {
	if c.DeviceTimeoutMS == 0 {
		return -1
	}
	return time.Duration(c.DeviceTimeoutMS) * time.Millisecond
}

// SendTimeout returns the bound on a single delivery.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMS) * time.Millisecond
}
