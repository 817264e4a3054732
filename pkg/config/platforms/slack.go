package platforms

import (
	"strings"
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
)

// DefaultOpenTimeout bounds how long a send waits for the Slack connection to open.
const DefaultOpenTimeout = 30 * time.Second

// SlackConfig represents configuration for the Slack channel
type SlackConfig struct {
	// Token is the bot token used for the Web API.
	Token string `json:"token" yaml:"token" split_words:"true"`
	// AppToken (xapp-) enables a Socket Mode connection.
	AppToken string `json:"appToken,omitempty" yaml:"appToken,omitempty" split_words:"true"`
	// Channel is the default destination name.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty" split_words:"true"`

	// APIURL overrides the Web API base URL, with a trailing slash.
	APIURL string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty" split_words:"true"`

	OpenTimeout time.Duration `json:"openTimeout,omitempty" yaml:"openTimeout,omitempty" split_words:"true"`
}

// Validate validates the Slack configuration
func (c *SlackConfig) Validate() error {
	if c.Token == "" {
		return errors.NewConfigurationError("token", "token not specified")
	}
	if c.AppToken != "" && !strings.HasPrefix(c.AppToken, "xapp-") {
		return errors.NewConfigurationError("appToken", "appToken must be an app-level token (xapp-)")
	}
	if c.OpenTimeout < 0 {
		return errors.NewConfigurationError("openTimeout", "openTimeout cannot be negative")
	}
	return nil
}

// IsSocketMode returns true if an app-level token is configured
func (c *SlackConfig) IsSocketMode() bool {
	return c.AppToken != ""
}

// GetOpenTimeout returns the open timeout or its default
func (c *SlackConfig) GetOpenTimeout() time.Duration {
	if c.OpenTimeout <= 0 {
		return DefaultOpenTimeout
	}
	return c.OpenTimeout
}
