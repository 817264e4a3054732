// Package platforms provides the typed configuration of each channel adapter
package platforms

import (
	"strings"
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
)

// SMTPEndpoint is the relay address of a mail provider
type SMTPEndpoint struct {
	Host string
	Port int
}

// WellKnownSMTP maps mail relay service names to their submission endpoints.
var WellKnownSMTP = map[string]SMTPEndpoint{
	"gmail":        {Host: "smtp.gmail.com", Port: 587},
	"yahoo":        {Host: "smtp.mail.yahoo.com", Port: 587},
	"outlook":      {Host: "smtp-mail.outlook.com", Port: 587},
	"hotmail":      {Host: "smtp-mail.outlook.com", Port: 587},
	"icloud":       {Host: "smtp.mail.me.com", Port: 587},
	"zoho":         {Host: "smtp.zoho.com", Port: 587},
	"yandex":       {Host: "smtp.yandex.com", Port: 587},
	"fastmail":     {Host: "smtp.fastmail.com", Port: 587},
	"sendgrid":     {Host: "smtp.sendgrid.net", Port: 587},
	"mailgun-smtp": {Host: "smtp.mailgun.org", Port: 587},
}

// TLS policies accepted by MailRelayConfig
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// MailRelayConfig represents configuration for the mail relay channel
type MailRelayConfig struct {
	// Service is a well-known provider name or "smtp" with an explicit Host.
	Service  string `json:"service" yaml:"service" split_words:"true"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty" split_words:"true"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty" split_words:"true"`
	Username string `json:"username" yaml:"username" split_words:"true"`
	Password string `json:"password" yaml:"password" split_words:"true"`
	From     string `json:"from,omitempty" yaml:"from,omitempty" split_words:"true"`

	// Security settings
	TLSPolicy string `json:"tlsPolicy,omitempty" yaml:"tlsPolicy,omitempty" split_words:"true"`
	SSL       bool   `json:"ssl,omitempty" yaml:"ssl,omitempty" split_words:"true"`

	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" split_words:"true"`
}

// Endpoint returns the relay host and port. An explicit Host wins over the
// well-known table; a missing port defaults to 587.
func (c *MailRelayConfig) Endpoint() (string, int, error) {
	if c.Host != "" {
		port := c.Port
		if port == 0 {
			port = 587
		}
		return c.Host, port, nil
	}
	ep, ok := WellKnownSMTP[strings.ToLower(c.Service)]
	if !ok {
		return "", 0, errors.NewConfigurationError("host", "unknown mail service %q requires a host", c.Service)
	}
	if c.Port != 0 {
		ep.Port = c.Port
	}
	return ep.Host, ep.Port, nil
}

// Validate validates the mail relay configuration
func (c *MailRelayConfig) Validate() error {
	if c.Service == "" && c.Host == "" {
		return errors.NewConfigurationError("service", "mail service is required")
	}
	if c.Username == "" {
		return errors.NewConfigurationError("username", "wrong %s service username: %q", c.Service, c.Username)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.NewConfigurationError("port", "port must be between 1 and 65535")
	}
	switch strings.ToLower(c.TLSPolicy) {
	case "", TLSMandatory, TLSOpportunistic, TLSNone:
	default:
		return errors.NewConfigurationError("tlsPolicy", "invalid TLS policy: %s", c.TLSPolicy)
	}
	if c.Timeout < 0 {
		return errors.NewConfigurationError("timeout", "timeout cannot be negative")
	}
	if _, _, err := c.Endpoint(); err != nil {
		return err
	}
	return nil
}
