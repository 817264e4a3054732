// Package config provides the configuration system for senderhub: the
// per-channel option blocks, their resolution into typed adapter configs,
// fallback defaults and dispatcher settings.
package config

import (
	"strings"
	"time"

	"github.com/kart-io/senderhub/pkg/config/platforms"
	"github.com/kart-io/senderhub/pkg/errors"
)

// Type aliases for channel configurations
type (
	MailRelayConfig = platforms.MailRelayConfig
	MailgunConfig   = platforms.MailgunConfig
	SlackConfig     = platforms.SlackConfig
	TelegramConfig  = platforms.TelegramConfig
	HTTPConfig      = platforms.HTTPConfig
)

// Config represents a complete senderhub configuration, as loaded from a file
type Config struct {
	// Services holds one option block per public channel name.
	Services Raw      `json:"services" yaml:"services"`
	Defaults Defaults `json:"defaults" yaml:"defaults"`
	Settings Settings `json:"settings" yaml:"settings"`
}

// Settings configures the dispatcher and its supporting infrastructure
type Settings struct {
	// SendTimeout bounds a single channel send; zero means no limit.
	SendTimeout time.Duration   `json:"sendTimeout,omitempty" yaml:"sendTimeout,omitempty"`
	Logger      LoggerConfig    `json:"logger" yaml:"logger"`
	Store       StoreConfig     `json:"store" yaml:"store"`
	Telemetry   TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// LoggerConfig configures logging behavior
type LoggerConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// StoreConfig configures the recipient store. Entries expire after TTL when
// it is positive.
type StoreConfig struct {
	Backend string        `json:"backend" yaml:"backend"`
	TTL     time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Redis   RedisConfig   `json:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis recipient store backend
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"keyPrefix,omitempty" yaml:"keyPrefix,omitempty"`
}

// TelemetryConfig configures tracing and metrics
type TelemetryConfig struct {
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	ServiceName    string            `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string            `json:"serviceVersion" yaml:"serviceVersion"`
	Environment    string            `json:"environment" yaml:"environment"`
	OTLPEndpoint   string            `json:"otlpEndpoint" yaml:"otlpEndpoint"`
	OTLPHeaders    map[string]string `json:"otlpHeaders,omitempty" yaml:"otlpHeaders,omitempty"`
	TracingEnabled bool              `json:"tracingEnabled" yaml:"tracingEnabled"`
	MetricsEnabled bool              `json:"metricsEnabled" yaml:"metricsEnabled"`
	SampleRate     float64           `json:"sampleRate" yaml:"sampleRate"`
}

// DefaultTelemetryConfig returns a disabled telemetry configuration with the
// exporter defaults filled in.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:    "senderhub",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4318",
		TracingEnabled: true,
		MetricsEnabled: true,
		SampleRate:     1.0,
	}
}

// Option defines a functional option for configuration
type Option func(*Config) error

// New creates a new configuration with the given options
func New(opts ...Option) (*Config, error) {
	cfg := &Config{
		Services: Raw{},
		Settings: Settings{
			Logger:    LoggerConfig{Level: "warn", Format: "text"},
			Store:     StoreConfig{Backend: StoreMemory},
			Telemetry: DefaultTelemetryConfig(),
		},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills missing settings with defaults and checks them. Service
// blocks are checked by Resolve.
func (c *Config) Validate() error {
	if c.Services == nil {
		c.Services = Raw{}
	}
	if c.Settings.SendTimeout < 0 {
		return errors.NewConfigurationError("sendTimeout", "sendTimeout cannot be negative")
	}

	if c.Settings.Logger.Level == "" {
		c.Settings.Logger.Level = "warn"
	}
	switch strings.ToLower(c.Settings.Logger.Format) {
	case "":
		c.Settings.Logger.Format = "text"
	case "text", "json":
	default:
		return errors.NewConfigurationError("logger.format", "unknown log format: %s", c.Settings.Logger.Format)
	}

	if c.Settings.Store.TTL < 0 {
		return errors.NewConfigurationError("store.ttl", "store ttl cannot be negative")
	}
	switch c.Settings.Store.Backend {
	case "":
		c.Settings.Store.Backend = StoreMemory
	case StoreMemory:
	case StoreRedis:
		if c.Settings.Store.Redis.Addr == "" {
			return errors.NewConfigurationError("store.redis.addr", "redis address is required for the redis store")
		}
	default:
		return errors.NewConfigurationError("store.backend", "unknown store backend: %s", c.Settings.Store.Backend)
	}

	t := &c.Settings.Telemetry
	if t.ServiceName == "" {
		t.ServiceName = "senderhub"
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return errors.NewConfigurationError("telemetry.sampleRate", "sample rate must be between 0 and 1")
	}
	if t.Enabled && t.TracingEnabled && t.OTLPEndpoint == "" {
		return errors.NewConfigurationError("telemetry.otlpEndpoint", "OTLP endpoint is required when tracing is enabled")
	}

	return c.Defaults.Validate()
}
