package platforms

import (
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
)

// MailgunConfig represents configuration for the transactional email channel
type MailgunConfig struct {
	APIKey string `json:"apiKey" yaml:"apiKey" split_words:"true"`
	Domain string `json:"domain" yaml:"domain" split_words:"true"`
	From   string `json:"from,omitempty" yaml:"from,omitempty" split_words:"true"`

	// APIBase overrides the API endpoint, e.g. https://api.eu.mailgun.net.
	// A base without a /v1 to /v5 suffix gets /v3 appended.
	APIBase string `json:"apiBase,omitempty" yaml:"apiBase,omitempty" split_words:"true"`

	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" split_words:"true"`
}

// HasCredentials reports whether both the API key and the domain are set
func (c *MailgunConfig) HasCredentials() bool {
	return c.APIKey != "" && c.Domain != ""
}

// Validate validates the transactional email configuration
func (c *MailgunConfig) Validate() error {
	if c.APIKey == "" {
		return errors.NewConfigurationError("apiKey", "wrong Mailgun service apiKey: %q", c.APIKey)
	}
	if c.Domain == "" {
		return errors.NewConfigurationError("domain", "wrong Mailgun service domain: %q", c.Domain)
	}
	if c.Timeout < 0 {
		return errors.NewConfigurationError("timeout", "timeout cannot be negative")
	}
	return nil
}
