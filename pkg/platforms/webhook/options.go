package webhook

import (
	"net/http"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
)

// Option configures a WebhookPlatform
type Option func(*WebhookPlatform)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(w *WebhookPlatform) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFallback sets the configuration used for values the adapter's own
// configuration leaves empty or invalid
func WithFallback(fallback config.HTTPConfig) Option {
	return func(w *WebhookPlatform) {
		w.fallback = fallback
	}
}

// WithHTTPClient uses client instead of building one in Initialize
func WithHTTPClient(client *http.Client) Option {
	return func(w *WebhookPlatform) {
		w.custom = client
	}
}
