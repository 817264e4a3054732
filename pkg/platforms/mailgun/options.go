package mailgun

import (
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
)

// Option configures a MailgunPlatform
type Option func(*MailgunPlatform)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(m *MailgunPlatform) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithFallback sets the credentials used when none are given explicitly
func WithFallback(fallback config.MailgunConfig) Option {
	return func(m *MailgunPlatform) {
		m.fallback = fallback
	}
}

// WithClientFactory replaces the mailgun-go client constructor
func WithClientFactory(f ClientFactory) Option {
	return func(m *MailgunPlatform) {
		if f != nil {
			m.newClient = f
		}
	}
}
