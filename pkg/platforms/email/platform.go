// Package email provides the mail relay channel: messages are submitted to an
// SMTP relay, either a well-known provider or an explicit host, through go-mail.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// EmailPlatform implements platform.Driver for the mail relay channel
type EmailPlatform struct {
	*platform.Base

	config    config.MailRelayConfig
	fallback  config.MailRelayConfig
	logger    logger.Logger
	newClient ClientFactory
	client    MailClient
}

// NewEmailPlatform creates a mail relay adapter. Service and credentials
// missing from cfg are taken from the fallback configuration; a relay with
// neither a service nor a host is a ConfigurationError.
func NewEmailPlatform(cfg *config.MailRelayConfig, opts ...Option) (*EmailPlatform, error) {
	e := &EmailPlatform{
		logger:    logger.Discard,
		newClient: NewGoMailClient,
	}
	if cfg != nil {
		e.config = *cfg
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Base = platform.NewBase(service.MailRelay, e.logger)

	if err := e.SetMailService(e.config.Service); err != nil {
		return nil, err
	}
	e.SetAuthData(e.config.Username, e.config.Password)
	if e.config.Host == "" {
		e.config.Host, e.config.Port = e.fallback.Host, e.fallback.Port
	}
	if e.config.From == "" {
		e.config.From = e.fallback.From
	}
	if e.config.TLSPolicy == "" {
		e.config.TLSPolicy = e.fallback.TLSPolicy
	}
	if e.config.Timeout == 0 {
		e.config.Timeout = e.fallback.Timeout
	}

	if _, _, err := e.config.Endpoint(); err != nil {
		return nil, err
	}

	return e, nil
}

// NewPlatform is the factory function registered for the mail relay channel
func NewPlatform(cfg any, deps platform.Deps) (platform.Driver, error) {
	c, ok := cfg.(*config.MailRelayConfig)
	if !ok {
		return nil, errors.NewInvalidArgumentError("invalid mail relay configuration type %T", cfg)
	}
	return NewEmailPlatform(c, WithLogger(deps.Logger))
}

// MailService returns the relay service name
func (e *EmailPlatform) MailService() string {
	return e.config.Service
}

// SetMailService selects the relay service; an empty name selects the
// fallback service
func (e *EmailPlatform) SetMailService(name string) error {
	if name == "" {
		name = e.fallback.Service
	}
	if name == "" && e.config.Host == "" && e.fallback.Host == "" {
		return errors.NewConfigurationError("service", "mail service not specified")
	}
	e.config.Service = name
	return nil
}

// AuthData returns the relay credentials
func (e *EmailPlatform) AuthData() (user, pass string) {
	return e.config.Username, e.config.Password
}

// SetAuthData sets the relay credentials; an empty user selects the
// fallback credentials
func (e *EmailPlatform) SetAuthData(user, pass string) {
	if user == "" {
		user, pass = e.fallback.Username, e.fallback.Password
	}
	e.config.Username, e.config.Password = user, pass
}

// SetTo requires the destination to contain valid addresses
func (e *EmailPlatform) SetTo(to string) error {
	return e.SetEmailTo(to)
}

// Initialize creates the relay client unless one exists and forceNew is
// false, then fills the From field with the username when it is unset
func (e *EmailPlatform) Initialize(_ context.Context, forceNew bool) error {
	if e.client == nil || forceNew {
		host, port, err := e.config.Endpoint()
		if err != nil {
			return err
		}

		opts := []mail.Option{
			mail.WithPort(port),
			mail.WithTLSPolicy(tlsPolicy(e.config.TLSPolicy)),
		}
		if e.config.Username != "" {
			opts = append(opts,
				mail.WithSMTPAuth(mail.SMTPAuthPlain),
				mail.WithUsername(e.config.Username),
				mail.WithPassword(e.config.Password),
			)
		}
		if e.config.SSL {
			opts = append(opts, mail.WithSSL())
		}
		if e.config.Timeout > 0 {
			opts = append(opts, mail.WithTimeout(e.config.Timeout))
		}

		client, err := e.newClient(host, opts...)
		if err != nil {
			e.logger.Error("Failed to create mail client", "service", e.config.Service, "host", host, "error", err)
			return errors.Wrap(err, errors.ErrCodeConfiguration, "create mail client").WithService(e.config.Service)
		}
		e.client = client
		e.logger.Debug("Mail client created", "service", e.config.Service, "host", host, "port", port)
	}

	msg := e.Message()
	if msg.From() == "" {
		from := e.config.From
		if from == "" {
			from = e.config.Username
		}
		if err := msg.SetFrom(from); err != nil {
			e.logger.Warn("Wrong default From field", "value", from, "error", err)
		}
	}
	return nil
}

// Deliver submits the current message to the relay
func (e *EmailPlatform) Deliver(ctx context.Context) (string, error) {
	msg := e.Message()

	m, err := buildMsg(msg)
	if err != nil {
		return "", err
	}

	start := time.Now()
	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		e.logger.Error("Mail send failed", "service", e.config.Service, "to", msg.To(), "error", err)
		text := fmt.Sprintf("Mail send error: %v; To: %s; service: %s", err, msg.To(), e.config.Service)
		return text, errors.NewTransportError(service.MailRelay.String(), msg.To(), 0, err)
	}

	e.logger.Info("Mail sent", "service", e.config.Service, "to", msg.To(), "duration", time.Since(start))
	return "Message sent: " + m.GetMessageID(), nil
}

// Close drops the relay client
func (e *EmailPlatform) Close() error {
	e.Lock()
	defer e.Unlock()

	e.client = nil
	return e.Base.Close()
}

// buildMsg composes the go-mail message: from, to, subject and a plain or
// HTML body
func buildMsg(msg *message.Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if from := message.SplitAddressList(msg.From()); len(from) > 0 {
		if err := m.From(from[0]); err != nil {
			return nil, errors.NewValidationError("from", "invalid from address %q: %v", from[0], err)
		}
	}
	if err := m.To(message.SplitAddressList(msg.To())...); err != nil {
		return nil, errors.NewValidationError("to", "invalid recipient %q: %v", msg.To(), err)
	}

	m.Subject(msg.Subject())
	if msg.HTMLFlag() {
		m.SetBodyString(mail.TypeTextHTML, msg.Text())
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Text())
	}
	m.SetMessageID()
	m.SetDate()

	return m, nil
}
