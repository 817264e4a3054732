// Package senderhub sends one logical message through several notification
// channels: mail relays, the Mailgun API, Slack, Telegram bots and generic
// HTTP callbacks.
//
// Basic usage:
//
//	cfg, err := config.New(
//		config.WithService("gmail", map[string]any{"username": "me@gmail.com", "password": "app-password"}),
//		config.WithService("slack", map[string]any{"token": "xoxb-...", "channel": "#ops"}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	hub, err := senderhub.New(context.Background(), cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer hub.Close()
//
//	opts := message.NewOptions().WithTo("ops@example.com").WithSubject("Deploy").WithText("v1.2.0 is live")
//	err = hub.Dispatch(ctx, opts, func(r platform.Result) {
//		log.Printf("%s: %s", r.Service, r.Message)
//	})
package senderhub

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/kart-io/senderhub/observability"
	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/core"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/platforms/email"
	"github.com/kart-io/senderhub/pkg/platforms/mailgun"
	"github.com/kart-io/senderhub/pkg/platforms/slack"
	"github.com/kart-io/senderhub/pkg/platforms/telegram"
	"github.com/kart-io/senderhub/pkg/platforms/webhook"
	"github.com/kart-io/senderhub/pkg/service"
	"github.com/kart-io/senderhub/pkg/store"
)

// Core type aliases
type (
	// Options are the per-send message options
	Options = message.Options
	// Result is one callback report of a send
	Result = platform.Result
	// Callback receives send results
	Callback = platform.Callback
	// Driver is a channel adapter
	Driver = platform.Driver
	// Stats are the dispatcher statistics
	Stats = core.DispatcherStats
)

// Hub owns the channel adapters and the infrastructure they share
type Hub struct {
	config     *config.Config
	registry   *platform.Registry
	dispatcher *core.Dispatcher
	store      store.Store
	telemetry  *observability.TelemetryProvider
	logger     logger.Logger

	// ownStore and ownTelemetry are set when New built them
	ownStore     bool
	ownTelemetry bool
}

// DefaultRegistry returns a registry with the built-in adapter of every
// channel
func DefaultRegistry(log logger.Logger) *platform.Registry {
	r := platform.NewRegistry(log)
	r.Replace(service.MailRelay, email.NewPlatform)
	r.Replace(service.Mailgun, mailgun.NewPlatform)
	r.Replace(service.Slack, slack.NewPlatform)
	r.Replace(service.Telegram, telegram.NewPlatform)
	r.Replace(service.HTTP, webhook.NewPlatform)
	return r
}

// New creates a hub from cfg and builds an adapter for every service block
// in it. A nil cfg is config.New() with no services; adapters can then be
// built later with Initialize.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Hub, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.New(); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &hubOptions{factories: map[service.ID]platform.Factory{}}
	for _, opt := range opts {
		opt(o)
	}

	h := &Hub{config: cfg, logger: o.logger}
	if h.logger == nil {
		h.logger = newLogger(cfg.Settings.Logger)
	}

	h.store = o.store
	if h.store == nil {
		s, err := store.New(cfg.Settings.Store, h.logger)
		if err != nil {
			return nil, err
		}
		h.store = s
		h.ownStore = true
	}

	h.telemetry = o.telemetry
	if h.telemetry == nil {
		tp, err := observability.NewTelemetryProvider(&cfg.Settings.Telemetry)
		if err != nil {
			h.closeInfrastructure(ctx)
			return nil, err
		}
		h.telemetry = tp
		h.ownTelemetry = true
	}

	h.registry = DefaultRegistry(h.logger)
	for id, f := range o.factories {
		h.registry.Replace(id, f)
	}

	manager := core.NewManager(h.registry, platform.Deps{Logger: h.logger, Store: h.store}, &cfg.Defaults)
	dispatcher, err := core.NewDispatcher(manager,
		core.WithLogger(h.logger),
		core.WithTelemetry(h.telemetry),
		core.WithSendTimeout(cfg.Settings.SendTimeout),
	)
	if err != nil {
		h.closeInfrastructure(ctx)
		return nil, err
	}
	h.dispatcher = dispatcher

	if len(cfg.Services) > 0 {
		if err := h.Initialize(ctx, cfg.Services); err != nil {
			h.closeInfrastructure(ctx)
			return nil, err
		}
	}
	return h, nil
}

// NewWithOptions builds the configuration from opts and calls New
func NewWithOptions(ctx context.Context, opts ...config.Option) (*Hub, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

func newLogger(cfg config.LoggerConfig) logger.Logger {
	level := logger.ParseLevel(cfg.Level)
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return logger.NewSlogLogger(slog.New(handler), level)
}

// Initialize builds one adapter per service block of raw. It is a no-op
// while adapters are live.
func (h *Hub) Initialize(ctx context.Context, raw config.Raw) error {
	return h.dispatcher.Manager().Initialize(ctx, raw)
}

// Reinitialize closes the live adapters and builds new ones from raw
func (h *Hub) Reinitialize(ctx context.Context, raw config.Raw) error {
	return h.dispatcher.Manager().Reinitialize(ctx, raw)
}

// Current returns the sole live adapter when exactly one channel is
// configured, and all live adapters keyed by channel ID
func (h *Hub) Current() (Driver, map[service.ID]Driver) {
	return h.dispatcher.Manager().Current()
}

// Dispatch sends opts through the channels it names, or through every live
// adapter, without waiting for them. cb receives one terminal result per
// channel.
func (h *Hub) Dispatch(ctx context.Context, opts *Options, cb Callback) error {
	return h.dispatcher.Dispatch(ctx, opts, cb)
}

// DispatchAndWait is Dispatch returning every channel's terminal result once
// all of them have finished
func (h *Hub) DispatchAndWait(ctx context.Context, opts *Options) ([]Result, error) {
	return h.dispatcher.DispatchAndWait(ctx, opts)
}

// Stats returns the dispatcher statistics
func (h *Hub) Stats() *Stats {
	return h.dispatcher.GetStats()
}

// Registry returns the adapter factory registry
func (h *Hub) Registry() *platform.Registry {
	return h.registry
}

// Store returns the recipient store shared by the adapters
func (h *Hub) Store() store.Store {
	return h.store
}

// Close waits for in-flight sends and closes the adapters. The store and
// telemetry provider are closed only when the hub built them.
func (h *Hub) Close() error {
	err := h.dispatcher.Close()
	if cerr := h.closeInfrastructure(context.Background()); err == nil {
		err = cerr
	}
	return err
}

func (h *Hub) closeInfrastructure(ctx context.Context) error {
	var lastError error
	if h.ownStore && h.store != nil {
		if err := h.store.Close(); err != nil {
			h.logger.Error("Failed to close store", "error", err)
			lastError = err
		}
	}
	if h.ownTelemetry && h.telemetry != nil {
		if err := h.telemetry.Shutdown(ctx); err != nil {
			h.logger.Error("Failed to shut down telemetry", "error", err)
			lastError = err
		}
	}
	return lastError
}
