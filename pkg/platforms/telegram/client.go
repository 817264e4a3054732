package telegram

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kart-io/senderhub/pkg/config"
)

// Bot is the part of the Bot API used by the adapter
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory builds a Bot for a configuration
type BotFactory func(cfg config.TelegramConfig) (Bot, error)

// NewBotAPI is the default BotFactory, backed by telegram-bot-api. It checks
// the token with getMe.
func NewBotAPI(cfg config.TelegramConfig) (Bot, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
}
