// Functional options for senderhub configuration
package config

import (
	"time"
)

// WithService adds the option block of a channel, keyed by its public name
func WithService(name string, block map[string]any) Option {
	return func(c *Config) error {
		if c.Services == nil {
			c.Services = Raw{}
		}
		c.Services[name] = block
		return nil
	}
}

// WithServices replaces all option blocks
func WithServices(raw Raw) Option {
	return func(c *Config) error {
		c.Services = raw
		return nil
	}
}

// WithDefaults sets the fallback channel configurations
func WithDefaults(defaults Defaults) Option {
	return func(c *Config) error {
		c.Defaults = defaults
		return nil
	}
}

// WithEnvDefaults fills unset fallback configurations from the environment
func WithEnvDefaults(prefix string) Option {
	return func(c *Config) error {
		env, err := DefaultsFromEnv(prefix)
		if err != nil {
			return err
		}
		c.Defaults.Fill(env)
		return nil
	}
}

// WithSendTimeout bounds every channel send
func WithSendTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.Settings.SendTimeout = timeout
		return nil
	}
}

// WithLogLevel sets the log level name
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Settings.Logger.Level = level
		return nil
	}
}

// WithRedisStore selects the Redis recipient store
func WithRedisStore(redis RedisConfig) Option {
	return func(c *Config) error {
		c.Settings.Store = StoreConfig{Backend: StoreRedis, Redis: redis}
		return nil
	}
}

// WithTelemetry sets the telemetry configuration
func WithTelemetry(telemetry TelemetryConfig) Option {
	return func(c *Config) error {
		c.Settings.Telemetry = telemetry
		return nil
	}
}

// WithTestDefaults applies test-friendly settings
func WithTestDefaults() Option {
	return func(c *Config) error {
		c.Settings.SendTimeout = 5 * time.Second
		c.Settings.Logger = LoggerConfig{Level: "debug", Format: "text"}
		c.Settings.Store = StoreConfig{Backend: StoreMemory}
		c.Settings.Telemetry.Enabled = false
		return nil
	}
}
