package telegram

import (
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/store"
)

// Option configures a TelegramPlatform
type Option func(*TelegramPlatform)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(t *TelegramPlatform) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithFallback sets the configuration used when the token or chat ID is empty
func WithFallback(fallback config.TelegramConfig) Option {
	return func(t *TelegramPlatform) {
		t.fallback = fallback
	}
}

// WithBotFactory replaces the telegram-bot-api constructor
func WithBotFactory(f BotFactory) Option {
	return func(t *TelegramPlatform) {
		if f != nil {
			t.newBot = f
		}
	}
}

// WithStore persists chat IDs learned from /start
func WithStore(s store.Store) Option {
	return func(t *TelegramPlatform) {
		t.store = s
	}
}
