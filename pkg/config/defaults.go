package config

import (
	"reflect"

	"github.com/kelseyhightower/envconfig"

	"github.com/kart-io/senderhub/pkg/errors"
)

// DefaultEnvPrefix is the environment prefix read by DefaultsFromEnv
const DefaultEnvPrefix = "SENDERHUB"

// Defaults holds the fallback configuration of every channel. An adapter
// falls back to these values for fields its own block leaves empty.
type Defaults struct {
	MailRelay MailRelayConfig `json:"mailrelay" yaml:"mailrelay"`
	Mailgun   MailgunConfig   `json:"mailgun" yaml:"mailgun"`
	Slack     SlackConfig     `json:"slack" yaml:"slack"`
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

// DefaultsFromEnv reads fallback configurations from the environment, e.g.
// SENDERHUB_MAILGUN_API_KEY or SENDERHUB_TELEGRAM_CHAT_ID.
func DefaultsFromEnv(prefix string) (*Defaults, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	var d Defaults
	if err := envconfig.Process(prefix, &d); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "read defaults from environment")
	}
	return &d, nil
}

// Fill copies every channel block of fallback into d whose block is unset.
func (d *Defaults) Fill(fallback *Defaults) {
	if fallback == nil {
		return
	}
	fillZero(&d.MailRelay, fallback.MailRelay)
	fillZero(&d.Mailgun, fallback.Mailgun)
	fillZero(&d.Slack, fallback.Slack)
	fillZero(&d.Telegram, fallback.Telegram)
	fillZero(&d.HTTP, fallback.HTTP)
}

func fillZero[T any](dst *T, src T) {
	if reflect.ValueOf(dst).Elem().IsZero() {
		*dst = src
	}
}

// Validate checks the fields that are set. Fallback blocks may be partial.
func (d *Defaults) Validate() error {
	if err := d.HTTP.Validate(); err != nil {
		return err
	}
	if d.Slack.OpenTimeout < 0 || d.Telegram.StartTimeout < 0 {
		return errors.NewConfigurationError("timeout", "default timeouts cannot be negative")
	}
	return nil
}
