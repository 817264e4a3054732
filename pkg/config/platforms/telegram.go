package platforms

import (
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
)

// DefaultStartTimeout bounds how long a send waits for the /start command.
const DefaultStartTimeout = 5 * time.Minute

// TelegramConfig represents configuration for the Telegram channel
type TelegramConfig struct {
	Token string `json:"token" yaml:"token" split_words:"true"`
	// ChatID is the destination chat; when zero it is learned from /start.
	ChatID int64 `json:"chatId,omitempty" yaml:"chatId,omitempty" split_words:"true"`

	StartTimeout time.Duration `json:"startTimeout,omitempty" yaml:"startTimeout,omitempty" split_words:"true"`
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int `json:"pollTimeout,omitempty" yaml:"pollTimeout,omitempty" split_words:"true"`
	// APIEndpoint overrides the Bot API endpoint format, e.g. a local Bot API server.
	APIEndpoint string `json:"apiEndpoint,omitempty" yaml:"apiEndpoint,omitempty" split_words:"true"`
}

// Validate validates the Telegram configuration
func (c *TelegramConfig) Validate() error {
	if c.Token == "" {
		return errors.NewConfigurationError("token", "token not specified")
	}
	if c.StartTimeout < 0 {
		return errors.NewConfigurationError("startTimeout", "startTimeout cannot be negative")
	}
	if c.PollTimeout < 0 {
		return errors.NewConfigurationError("pollTimeout", "pollTimeout cannot be negative")
	}
	return nil
}

// GetStartTimeout returns the start timeout or its default
func (c *TelegramConfig) GetStartTimeout() time.Duration {
	if c.StartTimeout <= 0 {
		return DefaultStartTimeout
	}
	return c.StartTimeout
}

// GetPollTimeout returns the polling timeout in seconds, 60 by default
func (c *TelegramConfig) GetPollTimeout() int {
	if c.PollTimeout <= 0 {
		return 60
	}
	return c.PollTimeout
}
