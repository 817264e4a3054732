// Package slack provides the chat channel: messages are posted to a channel,
// group or direct conversation looked up by name through the Slack Web API.
package slack

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// Result texts
const (
	ResultSent           = "Message successfully sent"
	ResultWrongRecipient = "Wrong recipient name"
)

// SlackPlatform implements platform.Driver for the chat channel
type SlackPlatform struct {
	*platform.Base

	config    config.SlackConfig
	fallback  config.SlackConfig
	logger    logger.Logger
	newClient ClientFactory

	api  API
	conn *connection
	// recipients caches name lookups for the current connection
	recipients map[string]string
}

// NewSlackPlatform creates a Slack adapter. An empty token selects the
// fallback token; it is a ConfigurationError when both are empty.
func NewSlackPlatform(cfg *config.SlackConfig, opts ...Option) (*SlackPlatform, error) {
	s := &SlackPlatform{
		logger:    logger.Discard,
		newClient: NewSlackClient,
	}
	if cfg != nil {
		s.config = *cfg
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Base = platform.NewBase(service.Slack, s.logger)

	if err := s.SetToken(s.config.Token); err != nil {
		return nil, err
	}
	if s.config.AppToken == "" {
		s.config.AppToken = s.fallback.AppToken
	}
	if s.config.APIURL == "" {
		s.config.APIURL = s.fallback.APIURL
	}
	if s.config.Channel == "" {
		s.config.Channel = s.fallback.Channel
	}
	if s.config.OpenTimeout == 0 {
		s.config.OpenTimeout = s.fallback.OpenTimeout
	}
	if s.config.Channel != "" {
		_ = s.Message().SetTo(s.config.Channel, false)
	}
	return s, nil
}

// NewPlatform is the factory function registered for the Slack channel
func NewPlatform(cfg any, deps platform.Deps) (platform.Driver, error) {
	c, ok := cfg.(*config.SlackConfig)
	if !ok {
		return nil, errors.NewInvalidArgumentError("invalid slack configuration type %T", cfg)
	}
	return NewSlackPlatform(c, WithLogger(deps.Logger))
}

// Token returns the bot token
func (s *SlackPlatform) Token() string {
	return s.config.Token
}

// SetToken sets the bot token; an empty token selects the fallback token
func (s *SlackPlatform) SetToken(token string) error {
	if token == "" {
		token = s.fallback.Token
	}
	if token == "" {
		return errors.NewConfigurationError("token", "token not specified").WithService(service.Slack.String())
	}
	s.config.Token = token
	return nil
}

// Merge applies the nested Slack overrides
func (s *SlackPlatform) Merge(opts *message.Options, _ func(error)) {
	if opts == nil || opts.Slack == nil {
		return
	}
	if opts.Slack.To != nil {
		_ = s.Message().SetTo(*opts.Slack.To, false)
	}
	if opts.Slack.Text != nil {
		s.Message().SetText(*opts.Slack.Text, false)
	}
}

// Opened reports whether the current connection has finished logging in
func (s *SlackPlatform) Opened() bool {
	return s.conn != nil && s.conn.open.Fired()
}

// Initialize starts logging in unless a connection exists and forceNew is
// false. The login runs in the background; Deliver waits for it.
func (s *SlackPlatform) Initialize(_ context.Context, forceNew bool) error {
	if s.conn != nil && !forceNew {
		return nil
	}
	if s.conn != nil {
		s.conn.close()
	}

	s.api = s.newClient(s.config)
	s.recipients = make(map[string]string)

	ctx, cancel := context.WithCancel(context.Background())
	s.conn = newConnection(cancel)
	go connect(ctx, s.api, s.config.IsSocketMode(), s.conn, s.logger)

	s.logger.Debug("Slack client created", "socketMode", s.config.IsSocketMode())
	return nil
}

// Deliver waits for the connection to open, looks up the destination by
// name and posts the text. An unknown name is reported in the result text
// without an error.
func (s *SlackPlatform) Deliver(ctx context.Context) (string, error) {
	msg := s.Message()
	to := msg.To()

	if err := s.conn.open.Wait(ctx, s.config.GetOpenTimeout()); err != nil {
		return "", errors.NewTransportError(service.Slack.String(), to, 0, err)
	}
	if err := s.conn.Err(); err != nil {
		return "", errors.NewTransportError(service.Slack.String(), to, statusOf(err), err)
	}

	channelID, err := s.lookup(ctx, to)
	if err != nil {
		return "", errors.NewTransportError(service.Slack.String(), to, statusOf(err), err)
	}
	if channelID == "" {
		s.logger.Warn("Slack recipient not found", "to", to)
		return ResultWrongRecipient, nil
	}

	start := time.Now()
	_, ts, err := s.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(msg.Text(), false))
	if err != nil {
		s.logger.Error("Slack post failed", "to", to, "channel", channelID, "error", err)
		return "", errors.NewTransportError(service.Slack.String(), to, statusOf(err), err)
	}

	s.logger.Info("Slack message posted", "to", to, "channel", channelID, "ts", ts, "duration", time.Since(start))
	return ResultSent, nil
}

// Close ends the connection
func (s *SlackPlatform) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}
	s.api = nil
	return s.Base.Close()
}

// lookup returns the conversation ID for a channel, group or user name. A
// leading # or @ is ignored. It returns "" when nothing matches.
func (s *SlackPlatform) lookup(ctx context.Context, to string) (string, error) {
	name := strings.TrimLeft(strings.TrimSpace(to), "#@")
	if name == "" {
		return "", nil
	}
	if id, ok := s.recipients[name]; ok {
		return id, nil
	}

	id, err := s.lookupConversation(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		if id, err = s.lookupUser(ctx, name); err != nil {
			return "", err
		}
	}
	if id != "" {
		s.recipients[name] = id
	}
	return id, nil
}

func (s *SlackPlatform) lookupConversation(ctx context.Context, name string) (string, error) {
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel", "mpim"},
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		channels, cursor, err := s.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", err
		}
		for _, ch := range channels {
			if ch.Name == name || ch.ID == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", nil
		}
		params.Cursor = cursor
	}
}

func (s *SlackPlatform) lookupUser(ctx context.Context, name string) (string, error) {
	users, err := s.api.GetUsersContext(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Deleted {
			continue
		}
		if u.Name == name || u.ID == name || u.Profile.DisplayName == name {
			ch, _, _, err := s.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{u.ID}})
			if err != nil {
				return "", err
			}
			return ch.ID, nil
		}
	}
	return "", nil
}

// statusOf extracts the HTTP status from a slack-go error, 0 when there is none
func statusOf(err error) int {
	var sc slack.StatusCodeError
	if stderrors.As(err, &sc) {
		return sc.Code
	}
	return 0
}
