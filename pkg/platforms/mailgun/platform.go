// Package mailgun provides the transactional email channel backed by the
// Mailgun messages API.
package mailgun

import (
	"context"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// Credentials identify a Mailgun sending domain
type Credentials struct {
	APIKey string
	Domain string
}

// MailgunPlatform implements platform.Driver for the transactional email channel
type MailgunPlatform struct {
	*platform.Base

	config     config.MailgunConfig
	fallback   config.MailgunConfig
	logger     logger.Logger
	newClient  ClientFactory
	client     Client
	attachment *message.Attachment
}

// NewMailgunPlatform creates a Mailgun adapter. Credentials missing from cfg
// are taken from the fallback configuration.
func NewMailgunPlatform(cfg *config.MailgunConfig, opts ...Option) (*MailgunPlatform, error) {
	m := &MailgunPlatform{
		logger:    logger.Discard,
		newClient: NewMailgunClient,
	}
	if cfg != nil {
		m.config = *cfg
	}
	for _, opt := range opts {
		opt(m)
	}
	m.Base = platform.NewBase(service.Mailgun, m.logger)

	var err error
	if m.config.HasCredentials() {
		err = m.SetCredentials(&Credentials{APIKey: m.config.APIKey, Domain: m.config.Domain})
	} else {
		err = m.SetCredentials(nil)
	}
	if err != nil {
		return nil, err
	}

	if m.config.From == "" {
		m.config.From = m.fallback.From
	}
	if m.config.APIBase == "" {
		m.config.APIBase = m.fallback.APIBase
	}
	if m.config.Timeout == 0 {
		m.config.Timeout = m.fallback.Timeout
	}
	return m, nil
}

// NewPlatform is the factory function registered for the Mailgun channel
func NewPlatform(cfg any, deps platform.Deps) (platform.Driver, error) {
	c, ok := cfg.(*config.MailgunConfig)
	if !ok {
		return nil, errors.NewInvalidArgumentError("invalid mailgun configuration type %T", cfg)
	}
	return NewMailgunPlatform(c, WithLogger(deps.Logger))
}

// Credentials returns the API key and domain in use
func (m *MailgunPlatform) Credentials() Credentials {
	return Credentials{APIKey: m.config.APIKey, Domain: m.config.Domain}
}

// SetCredentials replaces the credentials. nil selects the fallback
// credentials; it is a ConfigurationError when there are none.
func (m *MailgunPlatform) SetCredentials(creds *Credentials) error {
	if creds == nil {
		if !m.fallback.HasCredentials() {
			return errors.NewConfigurationError("apiKey", "wrong Mailgun options").WithService(service.Mailgun.String())
		}
		creds = &Credentials{APIKey: m.fallback.APIKey, Domain: m.fallback.Domain}
	}
	if creds.APIKey == "" {
		return errors.NewConfigurationError("apiKey", "wrong Mailgun service apiKey: %q", creds.APIKey)
	}
	if creds.Domain == "" {
		return errors.NewConfigurationError("domain", "wrong Mailgun service domain: %q", creds.Domain)
	}
	m.config.APIKey, m.config.Domain = creds.APIKey, creds.Domain
	return nil
}

// SetCredentialPair is SetCredentials with positional arguments
func (m *MailgunPlatform) SetCredentialPair(apiKey, domain string) error {
	return m.SetCredentials(&Credentials{APIKey: apiKey, Domain: domain})
}

// SetTo requires the destination to contain valid addresses
func (m *MailgunPlatform) SetTo(to string) error {
	return m.SetEmailTo(to)
}

// Merge keeps the attachment of the send, if any. An attachment stays in
// place for later sends until replaced.
func (m *MailgunPlatform) Merge(opts *message.Options, _ func(error)) {
	if opts != nil && opts.Attachment != nil {
		m.attachment = opts.Attachment
	}
}

// Attachment returns the stored attachment
func (m *MailgunPlatform) Attachment() *message.Attachment {
	return m.attachment
}

// Initialize creates the API client unless one exists and forceNew is false
func (m *MailgunPlatform) Initialize(_ context.Context, forceNew bool) error {
	if m.client == nil || forceNew {
		m.client = m.newClient(m.config)
		m.logger.Debug("Mailgun client created", "domain", m.config.Domain, "apiBase", m.config.APIBase)
	}

	msg := m.Message()
	if msg.From() == "" && m.config.From != "" {
		if err := msg.SetFrom(m.config.From); err != nil {
			m.logger.Warn("Wrong default From field", "value", m.config.From, "error", err)
		}
	}
	return nil
}

// Deliver sends the current message through the messages API
func (m *MailgunPlatform) Deliver(ctx context.Context) (string, error) {
	msg := m.Message()
	to := message.SplitAddressList(msg.To())

	var mm *mg.Message
	if msg.HTMLFlag() {
		mm = m.client.NewMessage(msg.From(), msg.Subject(), "", to...)
		mm.SetHtml(msg.Text())
	} else {
		mm = m.client.NewMessage(msg.From(), msg.Subject(), msg.Text(), to...)
	}
	if a := m.attachment; a != nil && len(a.Data) > 0 {
		mm.AddBufferAttachment(a.Filename, a.Data)
	}

	start := time.Now()
	resp, id, err := m.client.Send(ctx, mm)
	if err != nil {
		m.logger.Error("Mailgun send failed", "domain", m.config.Domain, "to", msg.To(), "error", err)
		text := fmt.Sprintf("Mail send error: %v; To: %s;", err, msg.To())
		return text, errors.NewTransportError(service.Mailgun.String(), msg.To(), statusOf(err), err)
	}

	m.logger.Info("Mailgun message queued", "id", id, "to", msg.To(), "duration", time.Since(start))
	return "Message sent: " + resp, nil
}

// Close drops the API client
func (m *MailgunPlatform) Close() error {
	m.Lock()
	defer m.Unlock()

	m.client = nil
	return m.Base.Close()
}

// statusOf extracts the HTTP status from a mailgun-go error, 0 when there is none
func statusOf(err error) int {
	if status := mg.GetStatusFromErr(err); status > 0 {
		return status
	}
	return 0
}
