package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/senderhub/pkg/errors"
)

// LoadFile reads a YAML configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "read config file").WithTarget(path)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration and applies the defaults of New
func Parse(data []byte) (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve resolves the service blocks of c against its defaults
func (c *Config) Resolve() (*Resolved, error) {
	return ResolveWithDefaults(c.Services, &c.Defaults)
}
