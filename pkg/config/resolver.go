package config

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/service"
)

// Raw is the caller's service configuration: one option block per public
// channel name, e.g. {"gmail": {"username": ..., "password": ...}}.
type Raw map[string]map[string]any

// Resolved holds the typed configuration of every channel named in a Raw.
// A nil field means the channel is not configured.
type Resolved struct {
	MailRelay *MailRelayConfig
	Mailgun   *MailgunConfig
	Slack     *SlackConfig
	Telegram  *TelegramConfig
	HTTP      *HTTPConfig
}

// IDs returns the configured channel IDs in a stable order
func (r *Resolved) IDs() []service.ID {
	var ids []service.ID
	for _, id := range service.IDs() {
		if r.Config(id) != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of configured channels
func (r *Resolved) Len() int { return len(r.IDs()) }

// Config returns the typed configuration for id, or nil when id is not
// configured. The result is one of the *XxxConfig types.
func (r *Resolved) Config(id service.ID) any {
	switch id {
	case service.MailRelay:
		if r.MailRelay != nil {
			return r.MailRelay
		}
	case service.Mailgun:
		if r.Mailgun != nil {
			return r.Mailgun
		}
	case service.Slack:
		if r.Slack != nil {
			return r.Slack
		}
	case service.Telegram:
		if r.Telegram != nil {
			return r.Telegram
		}
	case service.HTTP:
		if r.HTTP != nil {
			return r.HTTP
		}
	}
	return nil
}

// Resolve validates every block of raw and converts it to a typed config.
// Nothing is resolved if any block is invalid: an unknown name yields an
// UnsupportedServiceError, a missing or empty required key a
// ConfigurationError naming the key.
func Resolve(raw Raw) (*Resolved, error) {
	return ResolveWithDefaults(raw, nil)
}

// ResolveWithDefaults is Resolve, except that fields a block leaves unset are
// taken from defaults before the required keys are checked.
func ResolveWithDefaults(raw Raw, defaults *Defaults) (*Resolved, error) {
	if defaults == nil {
		defaults = &Defaults{}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &Resolved{}
	for _, name := range names {
		id, err := service.Lookup(name)
		if err != nil {
			return nil, err
		}
		if out.Config(id) != nil {
			return nil, errors.NewConfigurationError(name, "more than one %s block configured", id)
		}
		if err := resolveBlock(out, id, strings.ToLower(strings.TrimSpace(name)), raw[name], defaults); err != nil {
			if ne, ok := err.(*errors.NotifyError); ok {
				return nil, ne.WithService(name)
			}
			return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "resolve options").WithService(name)
		}
	}
	return out, nil
}

func resolveBlock(out *Resolved, id service.ID, name string, block map[string]any, defaults *Defaults) error {
	switch id {
	case service.MailRelay:
		cfg := defaults.MailRelay
		if err := decodeBlock(block, &cfg); err != nil {
			return err
		}
		if name != service.SMTP {
			cfg.Service = name
		} else if cfg.Service == "" {
			return errors.NewConfigurationError("service", "wrong mail service name: %q", cfg.Service)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out.MailRelay = &cfg
	case service.Mailgun:
		cfg := defaults.Mailgun
		if err := decodeBlock(block, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out.Mailgun = &cfg
	case service.Slack:
		cfg := defaults.Slack
		if err := decodeBlock(block, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out.Slack = &cfg
	case service.Telegram:
		cfg := defaults.Telegram
		if err := decodeBlock(block, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out.Telegram = &cfg
	case service.HTTP:
		cfg := defaults.HTTP
		if err := decodeBlock(block, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		out.HTTP = &cfg
	}
	return nil
}

// decodeBlock overlays block onto out through a YAML round trip, so option
// blocks built in code and blocks read from a file decode the same way.
func decodeBlock(block map[string]any, out any) error {
	if len(block) == 0 {
		return nil
	}
	data, err := yaml.Marshal(block)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfiguration, "encode option block")
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfiguration, "decode option block")
	}
	return nil
}
