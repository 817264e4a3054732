// Package telegram provides the bot channel. A bot without a configured chat
// ID learns it from the first /start command it receives.
package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
	"github.com/kart-io/senderhub/pkg/store"
)

// ResultSent is the result text of a delivered message
const ResultSent = "Message successfully sent"

// StartCommand is the bot command whose chat becomes the destination
const StartCommand = "start"

// TelegramPlatform implements platform.Driver for the bot channel
type TelegramPlatform struct {
	*platform.Base

	config   config.TelegramConfig
	fallback config.TelegramConfig
	logger   logger.Logger
	newBot   BotFactory
	store    store.Store

	bot        Bot
	stopListen context.CancelFunc

	chatMu    sync.Mutex
	chatID    int64
	chatReady *platform.Signal
}

// NewTelegramPlatform creates a Telegram adapter. An empty token selects the
// fallback token; it is a ConfigurationError when both are empty.
func NewTelegramPlatform(cfg *config.TelegramConfig, opts ...Option) (*TelegramPlatform, error) {
	t := &TelegramPlatform{
		logger:    logger.Discard,
		newBot:    NewBotAPI,
		chatReady: platform.NewSignal("telegram chat ID"),
	}
	if cfg != nil {
		t.config = *cfg
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Base = platform.NewBase(service.Telegram, t.logger)

	if err := t.SetToken(t.config.Token); err != nil {
		return nil, err
	}
	t.SetChatID(t.config.ChatID)
	if t.config.StartTimeout == 0 {
		t.config.StartTimeout = t.fallback.StartTimeout
	}
	if t.config.PollTimeout == 0 {
		t.config.PollTimeout = t.fallback.PollTimeout
	}
	if t.config.APIEndpoint == "" {
		t.config.APIEndpoint = t.fallback.APIEndpoint
	}
	return t, nil
}

// NewPlatform is the factory function registered for the Telegram channel
func NewPlatform(cfg any, deps platform.Deps) (platform.Driver, error) {
	c, ok := cfg.(*config.TelegramConfig)
	if !ok {
		return nil, errors.NewInvalidArgumentError("invalid telegram configuration type %T", cfg)
	}
	return NewTelegramPlatform(c, WithLogger(deps.Logger), WithStore(deps.Store))
}

// Token returns the bot token
func (t *TelegramPlatform) Token() string {
	return t.config.Token
}

// SetToken sets the bot token; an empty token selects the fallback token
func (t *TelegramPlatform) SetToken(token string) error {
	if token == "" {
		token = t.fallback.Token
	}
	if token == "" {
		return errors.NewConfigurationError("token", "token not specified").WithService(service.Telegram.String())
	}
	t.config.Token = token
	return nil
}

// ChatID returns the destination chat, 0 while it is unknown
func (t *TelegramPlatform) ChatID() int64 {
	t.chatMu.Lock()
	defer t.chatMu.Unlock()
	return t.chatID
}

// SetChatID sets the destination chat; 0 selects the fallback chat ID and
// leaves the current one when there is none
func (t *TelegramPlatform) SetChatID(id int64) {
	if id == 0 {
		id = t.fallback.ChatID
	}
	if id == 0 {
		return
	}
	t.chatMu.Lock()
	t.chatID = id
	t.chatMu.Unlock()
	t.chatReady.Fire()
}

// SetTo stores to as free text. A numeric to also becomes the destination
// chat; anything else leaves the chat ID as it is.
func (t *TelegramPlatform) SetTo(to string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil || id == 0 {
		return t.Message().SetTo(to, false)
	}
	t.SetChatID(id)
	return t.Message().SetTo(strconv.FormatInt(id, 10), false)
}

// Merge applies the nested Telegram overrides
func (t *TelegramPlatform) Merge(opts *message.Options, _ func(error)) {
	if opts == nil || opts.Telegram == nil {
		return
	}
	if opts.Telegram.Text != nil {
		t.Message().SetText(*opts.Telegram.Text, false)
	}
	if opts.Telegram.ChatID != nil {
		t.SetChatID(*opts.Telegram.ChatID)
	}
}

// Destination returns the chat ID. An unknown chat is not an error: Deliver
// waits for /start.
func (t *TelegramPlatform) Destination() (string, error) {
	if id := t.ChatID(); id != 0 {
		return strconv.FormatInt(id, 10), nil
	}
	return "", nil
}

// Initialize creates the bot unless one exists and forceNew is false. When
// the chat ID is unknown it is restored from the store, or the bot starts
// listening for /start.
func (t *TelegramPlatform) Initialize(ctx context.Context, forceNew bool) error {
	if t.bot != nil && !forceNew {
		return nil
	}
	t.stopListening()

	bot, err := t.newBot(t.config)
	if err != nil {
		t.logger.Error("Failed to create Telegram bot", "error", err)
		return errors.Wrap(err, errors.ErrCodeConfiguration, "create telegram bot").WithService(service.Telegram.String())
	}
	t.bot = bot
	t.logger.Debug("Telegram bot created")

	if t.ChatID() == 0 {
		t.restoreChatID(ctx)
	}
	if t.ChatID() == 0 {
		listenCtx, cancel := context.WithCancel(context.Background())
		t.stopListen = func() {
			cancel()
			bot.StopReceivingUpdates()
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = t.config.GetPollTimeout()
		go t.listen(listenCtx, bot.GetUpdatesChan(u))
		t.logger.Info("Waiting for the /start command to learn the Telegram chat ID")
	}
	return nil
}

// Deliver waits for the chat ID, bounded by the start timeout, then sends the text
func (t *TelegramPlatform) Deliver(ctx context.Context) (string, error) {
	if err := t.chatReady.Wait(ctx, t.config.GetStartTimeout()); err != nil {
		if stderrors.Is(err, platform.ErrSignalTimeout) {
			return "", errors.NewValidationError("to", "no Telegram chat ID: %v", err).
				WithService(service.Telegram.String()).WithCause(err)
		}
		return "", errors.NewTransportError(service.Telegram.String(), "", 0, err)
	}

	chatID := t.ChatID()
	target := strconv.FormatInt(chatID, 10)
	msg := tgbotapi.NewMessage(chatID, t.Message().Text())
	if t.Message().HTMLFlag() {
		msg.ParseMode = tgbotapi.ModeHTML
	}

	start := time.Now()
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("Telegram send failed", "chatId", chatID, "error", err)
		return "", errors.NewTransportError(service.Telegram.String(), target, statusOf(err), err)
	}

	t.logger.Info("Telegram message sent", "chatId", chatID, "duration", time.Since(start))
	return ResultSent, nil
}

// Close stops listening for updates and drops the bot
func (t *TelegramPlatform) Close() error {
	t.Lock()
	defer t.Unlock()

	t.stopListening()
	t.bot = nil
	return t.Base.Close()
}

func (t *TelegramPlatform) stopListening() {
	if t.stopListen != nil {
		t.stopListen()
		t.stopListen = nil
	}
}

// listen handles /start commands until ctx ends or updates closes
func (t *TelegramPlatform) listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m := update.Message
			if m == nil || m.Chat == nil || !m.IsCommand() || m.Command() != StartCommand {
				continue
			}
			t.SetChatID(m.Chat.ID)
			t.logger.Info("Telegram chat ID learned from /start", "chatId", m.Chat.ID)
			t.saveChatID(ctx, m.Chat.ID)
		}
	}
}

// storeKey is the recipient store key for this bot's chat ID
func (t *TelegramPlatform) storeKey() string {
	sum := sha256.Sum256([]byte(t.config.Token))
	return "telegram:chat:" + hex.EncodeToString(sum[:])[:16]
}

func (t *TelegramPlatform) restoreChatID(ctx context.Context) {
	if t.store == nil {
		return
	}
	v, err := t.store.Get(ctx, t.storeKey())
	if err != nil {
		if !store.IsNotFound(err) {
			t.logger.Warn("Failed to restore Telegram chat ID", "error", err)
		}
		return
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		t.logger.Warn("Stored Telegram chat ID is invalid", "value", v)
		return
	}
	t.SetChatID(id)
	t.logger.Debug("Telegram chat ID restored", "chatId", id)
}

func (t *TelegramPlatform) saveChatID(ctx context.Context, id int64) {
	if t.store == nil {
		return
	}
	if err := t.store.Set(ctx, t.storeKey(), strconv.FormatInt(id, 10)); err != nil {
		t.logger.Warn("Failed to save Telegram chat ID", "error", err)
	}
}

// statusOf extracts the Bot API error code, 0 when there is none
func statusOf(err error) int {
	var apiErr *tgbotapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
