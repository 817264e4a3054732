package mailgun

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	mg "github.com/mailgun/mailgun-go/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kart-io/senderhub/pkg/config"
)

// Client is the part of the Mailgun API used by the adapter
type Client interface {
	NewMessage(from, subject, text string, to ...string) *mg.Message
	Send(ctx context.Context, m *mg.Message) (mes string, id string, err error)
}

// ClientFactory builds a Client for a set of credentials
type ClientFactory func(cfg config.MailgunConfig) Client

// APIVersion is appended to an API base that has no version segment
const APIVersion = "/v3"

var versionSuffix = regexp.MustCompile(`/v[1-5]$`)

// NewMailgunClient is the default ClientFactory, backed by mailgun-go
func NewMailgunClient(cfg config.MailgunConfig) Client {
	c := mg.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		c.SetAPIBase(versionedAPIBase(cfg.APIBase))
	}
	c.SetClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Timeout,
	})
	return c
}

// versionedAPIBase appends APIVersion unless base already ends in /v1 to /v5,
// which mailgun-go requires
func versionedAPIBase(base string) string {
	base = strings.TrimRight(base, "/")
	if versionSuffix.MatchString(base) {
		return base
	}
	return base + APIVersion
}
