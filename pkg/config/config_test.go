package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/service"
)

func keyOf(t *testing.T, err error) string {
	t.Helper()
	ne, ok := err.(*errors.NotifyError)
	require.True(t, ok, "expected *NotifyError, got %T", err)
	return ne.Key
}

func TestResolve(t *testing.T) {
	raw := Raw{
		"gmail":    {"username": "bot@gmail.com", "password": "secret"},
		"mailgun":  {"apiKey": "key-123", "domain": "mg.example.com"},
		"slack":    {"token": "xoxb-1"},
		"telegram": {"token": "123:abc", "chatId": 42},
		"webhook":  {"url": "https://example.com/hook", "method": "put", "timeout": "5s"},
	}

	resolved, err := Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, 5, resolved.Len())
	assert.ElementsMatch(t, service.IDs(), resolved.IDs())

	require.NotNil(t, resolved.MailRelay)
	assert.Equal(t, "gmail", resolved.MailRelay.Service)
	assert.Equal(t, "bot@gmail.com", resolved.MailRelay.Username)
	assert.Equal(t, "secret", resolved.MailRelay.Password)

	assert.Equal(t, "key-123", resolved.Mailgun.APIKey)
	assert.Equal(t, "mg.example.com", resolved.Mailgun.Domain)
	assert.Equal(t, "xoxb-1", resolved.Slack.Token)
	assert.Equal(t, int64(42), resolved.Telegram.ChatID)
	assert.Equal(t, "put", resolved.HTTP.Method)
	assert.Equal(t, 5*time.Second, resolved.HTTP.Timeout)

	assert.Same(t, resolved.Slack, resolved.Config(service.Slack))
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name        string
		raw         Raw
		unsupported bool
		key         string
	}{
		{"unknown service", Raw{"pigeon": {}}, true, ""},
		{"missing username", Raw{"gmail": {"password": "x"}}, false, "username"},
		{"empty username", Raw{"yahoo": {"username": ""}}, false, "username"},
		{"missing api key", Raw{"mailgun": {"domain": "mg.example.com"}}, false, "apiKey"},
		{"missing domain", Raw{"mailgun": {"apiKey": "key"}}, false, "domain"},
		{"missing slack token", Raw{"slack": {}}, false, "token"},
		{"missing telegram token", Raw{"telegram": {"chatId": 1}}, false, "token"},
		{"smtp without service", Raw{"smtp": {"username": "u@example.com"}}, false, "service"},
		{"smtp unknown service without host", Raw{"smtp": {"service": "custom", "username": "u@example.com"}}, false, "host"},
		{"bad http method", Raw{"http": {"method": "PATCH"}}, false, "method"},
		{"bad http url", Raw{"http": {"url": "ftp://x.com"}}, false, "url"},
		{"two mail relays", Raw{"gmail": {"username": "a@gmail.com"}, "yahoo": {"username": "b@yahoo.com"}}, false, "yahoo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(tt.raw)
			require.Error(t, err)
			assert.Nil(t, resolved)
			if tt.unsupported {
				assert.True(t, errors.IsUnsupportedService(err))
				return
			}
			assert.True(t, errors.IsConfiguration(err), "got %v", err)
			assert.Equal(t, tt.key, keyOf(t, err))
		})
	}
}

func TestResolve_AllOrNothing(t *testing.T) {
	resolved, err := Resolve(Raw{
		"slack":   {"token": "xoxb-1"},
		"mailgun": {"apiKey": "key"},
	})
	require.Error(t, err)
	assert.Nil(t, resolved)
}

func TestResolve_SMTPWithHost(t *testing.T) {
	resolved, err := Resolve(Raw{
		"smtp": {"service": "relay", "host": "mail.internal", "port": 2525, "username": "ops@internal.example"},
	})
	require.NoError(t, err)

	host, port, err := resolved.MailRelay.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "mail.internal", host)
	assert.Equal(t, 2525, port)
}

func TestResolve_HTTPNeedsNoKeys(t *testing.T) {
	resolved, err := Resolve(Raw{"request": nil})
	require.NoError(t, err)
	require.NotNil(t, resolved.HTTP)
	assert.Equal(t, []service.ID{service.HTTP}, resolved.IDs())
}

func TestResolveWithDefaults(t *testing.T) {
	defaults := &Defaults{
		Slack:   SlackConfig{Token: "xoxb-default", Channel: "#ops"},
		Mailgun: MailgunConfig{APIKey: "default-key", Domain: "mg.default.com"},
	}

	resolved, err := ResolveWithDefaults(Raw{
		"slack":   {},
		"mailgun": {"domain": "mg.override.com"},
	}, defaults)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-default", resolved.Slack.Token)
	assert.Equal(t, "#ops", resolved.Slack.Channel)
	assert.Equal(t, "default-key", resolved.Mailgun.APIKey)
	assert.Equal(t, "mg.override.com", resolved.Mailgun.Domain)

	assert.Equal(t, "mg.default.com", defaults.Mailgun.Domain, "defaults must not be modified")
}

func TestMailRelayEndpoint(t *testing.T) {
	for _, name := range service.WellKnownMailServices {
		t.Run(name, func(t *testing.T) {
			cfg := MailRelayConfig{Service: name, Username: "u@example.com"}
			require.NoError(t, cfg.Validate())
			host, port, err := cfg.Endpoint()
			require.NoError(t, err)
			assert.NotEmpty(t, host)
			assert.Equal(t, 587, port)
		})
	}
}

func TestNew(t *testing.T) {
	cfg, err := New(
		WithService("slack", map[string]any{"token": "xoxb-1"}),
		WithSendTimeout(10*time.Second),
		WithLogLevel("debug"),
	)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Settings.SendTimeout)
	assert.Equal(t, "debug", cfg.Settings.Logger.Level)
	assert.Equal(t, StoreMemory, cfg.Settings.Store.Backend)
	assert.False(t, cfg.Settings.Telemetry.Enabled)

	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "xoxb-1", resolved.Slack.Token)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		key  string
	}{
		{"negative send timeout", []Option{WithSendTimeout(-time.Second)}, "sendTimeout"},
		{"redis without address", []Option{WithRedisStore(RedisConfig{})}, "store.redis.addr"},
		{"telemetry without endpoint", []Option{WithTelemetry(TelemetryConfig{Enabled: true, TracingEnabled: true})}, "telemetry.otlpEndpoint"},
		{"bad sample rate", []Option{WithTelemetry(TelemetryConfig{SampleRate: 2})}, "telemetry.sampleRate"},
		{"bad default method", []Option{WithDefaults(Defaults{HTTP: HTTPConfig{Method: "HEAD"}})}, "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
			assert.Equal(t, tt.key, keyOf(t, err))
		})
	}

	_, err := New(WithTestDefaults(), WithRedisStore(RedisConfig{Addr: "localhost:6379"}))
	require.NoError(t, err)
}

const sampleYAML = `
services:
  gmail:
    username: bot@gmail.com
    password: app-password
  telegram:
    token: "123:abc"
  http: {}
defaults:
  http:
    url: https://hooks.example.com/default
    method: PUT
    json: true
    headers:
      X-Team: ops
  telegram:
    startTimeout: 2m
settings:
  sendTimeout: 15s
  logger:
    level: info
    format: json
  store:
    backend: redis
    redis:
      addr: localhost:6379
      keyPrefix: "senderhub:"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Settings.SendTimeout)
	assert.Equal(t, "json", cfg.Settings.Logger.Format)
	assert.Equal(t, StoreRedis, cfg.Settings.Store.Backend)
	assert.Equal(t, "senderhub:", cfg.Settings.Store.Redis.KeyPrefix)
	assert.Equal(t, "senderhub", cfg.Settings.Telemetry.ServiceName)

	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 3, resolved.Len())
	assert.Equal(t, "https://hooks.example.com/default", resolved.HTTP.URL)
	assert.True(t, resolved.HTTP.JSON)
	assert.Equal(t, "ops", resolved.HTTP.Headers["X-Team"])
	assert.Equal(t, 2*time.Minute, resolved.Telegram.StartTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "senderhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Services, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	_, err = Parse([]byte("services: [not, a, map]"))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestDefaultsFromEnv(t *testing.T) {
	t.Setenv("SENDERHUB_MAILGUN_API_KEY", "env-key")
	t.Setenv("SENDERHUB_MAILGUN_DOMAIN", "mg.env.com")
	t.Setenv("SENDERHUB_TELEGRAM_CHAT_ID", "987")
	t.Setenv("SENDERHUB_SLACK_OPEN_TIMEOUT", "10s")
	t.Setenv("SENDERHUB_HTTP_HEADERS", "X-A:1,X-B:2")

	d, err := DefaultsFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", d.Mailgun.APIKey)
	assert.Equal(t, "mg.env.com", d.Mailgun.Domain)
	assert.Equal(t, int64(987), d.Telegram.ChatID)
	assert.Equal(t, 10*time.Second, d.Slack.OpenTimeout)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2"}, d.HTTP.Headers)

	t.Setenv("SENDERHUB_TELEGRAM_CHAT_ID", "not-a-number")
	_, err = DefaultsFromEnv(DefaultEnvPrefix)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestWithEnvDefaults(t *testing.T) {
	t.Setenv("SENDERHUB_SLACK_TOKEN", "xoxb-env")
	t.Setenv("SENDERHUB_MAILGUN_API_KEY", "env-key")

	cfg, err := New(
		WithDefaults(Defaults{Mailgun: MailgunConfig{APIKey: "explicit"}}),
		WithEnvDefaults(""),
		WithService("slack", nil),
	)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Defaults.Mailgun.APIKey, "explicit blocks win over the environment")
	assert.Equal(t, "xoxb-env", cfg.Defaults.Slack.Token)

	resolved, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "xoxb-env", resolved.Slack.Token)
}
