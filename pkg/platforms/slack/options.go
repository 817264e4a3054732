package slack

import (
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
)

// Option configures a SlackPlatform
type Option func(*SlackPlatform)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *SlackPlatform) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFallback sets the configuration used when the token is empty
func WithFallback(fallback config.SlackConfig) Option {
	return func(s *SlackPlatform) {
		s.fallback = fallback
	}
}

// WithClientFactory replaces the slack-go client constructor
func WithClientFactory(f ClientFactory) Option {
	return func(s *SlackPlatform) {
		if f != nil {
			s.newClient = f
		}
	}
}
