package email

import (
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
)

// Option configures an EmailPlatform
type Option func(*EmailPlatform)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *EmailPlatform) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFallback sets the configuration used for the service and credentials
// when the adapter's own configuration leaves them empty
func WithFallback(fallback config.MailRelayConfig) Option {
	return func(e *EmailPlatform) {
		e.fallback = fallback
	}
}

// WithClientFactory replaces the go-mail client constructor
func WithClientFactory(f ClientFactory) Option {
	return func(e *EmailPlatform) {
		if f != nil {
			e.newClient = f
		}
	}
}
