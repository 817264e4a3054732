// Package webhook provides the generic HTTP channel: the message text is
// sent as the body of a request to a configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/config/platforms"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// WebhookPlatform implements platform.Driver for the generic HTTP channel
type WebhookPlatform struct {
	*platform.Base

	config   config.HTTPConfig
	fallback config.HTTPConfig
	logger   logger.Logger

	method  string
	headers map[string]string
	query   map[string]string
	json    bool

	custom *http.Client
	client *http.Client
}

// NewWebhookPlatform creates an HTTP adapter. The URL, method, headers,
// query parameters and JSON flag come from cfg, then from the fallback
// configuration. A method that is invalid in both is a ConfigurationError.
func NewWebhookPlatform(cfg *config.HTTPConfig, opts ...Option) (*WebhookPlatform, error) {
	w := &WebhookPlatform{
		logger:  logger.Discard,
		method:  platforms.DefaultMethod,
		headers: make(map[string]string),
		query:   make(map[string]string),
	}
	if cfg != nil {
		w.config = *cfg
	}
	for _, opt := range opts {
		opt(w)
	}
	w.Base = platform.NewBase(service.HTTP, w.logger)

	if w.config.Method != "" || w.fallback.Method != "" {
		if err := w.SetMethod(w.config.Method); err != nil {
			return nil, errors.NewConfigurationError("method", "wrong REST method: %q", w.config.Method).
				WithService(service.HTTP.String()).WithCause(err)
		}
	}
	if u := w.config.URL; u != "" || w.fallback.URL != "" {
		if err := w.SetTo(u); err != nil {
			return nil, errors.NewConfigurationError("url", "wrong URL: %q", u).WithService(service.HTTP.String())
		}
	}
	w.AddHeaders(w.config.Headers, false)
	w.AddQuery(w.config.Query, false)
	w.SetJSON(w.config.JSON || w.fallback.JSON)
	if w.config.Timeout == 0 {
		w.config.Timeout = w.fallback.Timeout
	}
	return w, nil
}

// NewPlatform is the factory function registered for the HTTP channel
func NewPlatform(cfg any, deps platform.Deps) (platform.Driver, error) {
	c, ok := cfg.(*config.HTTPConfig)
	if !ok {
		return nil, errors.NewInvalidArgumentError("invalid http configuration type %T", cfg)
	}
	return NewWebhookPlatform(c, WithLogger(deps.Logger))
}

// Method returns the request method
func (w *WebhookPlatform) Method() string {
	return w.method
}

// SetMethod sets the request method. An invalid method selects the fallback
// method; it is a ValidationError, leaving the method unchanged, when that
// is invalid too.
func (w *WebhookPlatform) SetMethod(method string) error {
	switch {
	case platforms.IsValidMethod(method):
		w.method = strings.ToUpper(strings.TrimSpace(method))
	case platforms.IsValidMethod(w.fallback.Method):
		w.method = strings.ToUpper(strings.TrimSpace(w.fallback.Method))
	default:
		return errors.NewValidationError("method", "wrong REST method: %q", method).WithService(service.HTTP.String())
	}
	return nil
}

// SetTo sets the destination URL. An invalid URL selects the fallback URL;
// it is a ValidationError when that is invalid too.
func (w *WebhookPlatform) SetTo(to string) error {
	if message.ValidateURLSyntax(to) {
		return w.Message().SetURL(to)
	}
	if message.ValidateURLSyntax(w.fallback.URL) {
		return w.Message().SetURL(w.fallback.URL)
	}
	return errors.NewValidationError("to", "wrong URL: %q", to).WithService(service.HTTP.String())
}

// Headers returns a copy of the request headers
func (w *WebhookPlatform) Headers() map[string]string {
	return maps.Clone(w.headers)
}

// AddHeaders merges headers into the request headers, clearing them first
// when replace is set. Without replace, an empty map adds the fallback headers.
func (w *WebhookPlatform) AddHeaders(headers map[string]string, replace bool) {
	w.headers = merge(w.headers, headers, w.fallback.Headers, replace)
}

// Query returns a copy of the query parameters
func (w *WebhookPlatform) Query() map[string]string {
	return maps.Clone(w.query)
}

// AddQuery merges params into the query parameters, with the same rules as AddHeaders
func (w *WebhookPlatform) AddQuery(params map[string]string, replace bool) {
	w.query = merge(w.query, params, w.fallback.Query, replace)
}

// JSON reports whether bodies are sent as JSON
func (w *WebhookPlatform) JSON() bool {
	return w.json
}

// SetJSON selects JSON bodies
func (w *WebhookPlatform) SetJSON(v bool) {
	w.json = v
}

// Merge applies the nested HTTP overrides
func (w *WebhookPlatform) Merge(opts *message.Options, onError func(error)) {
	if opts == nil || opts.HTTP == nil {
		return
	}
	h := opts.HTTP
	if h.URL != nil {
		if err := w.SetTo(*h.URL); err != nil {
			onError(err)
		}
	}
	if h.Method != nil {
		if err := w.SetMethod(*h.Method); err != nil {
			onError(err)
		}
	}
	if h.Headers != nil || h.ReplaceHeaders {
		w.AddHeaders(h.Headers, h.ReplaceHeaders)
	}
	if h.Query != nil || h.ReplaceQuery {
		w.AddQuery(h.Query, h.ReplaceQuery)
	}
	if h.JSON != nil {
		w.SetJSON(*h.JSON)
	}
	if h.Payload != nil {
		w.Message().SetText(h.Payload, true)
	}
}

// Initialize creates the HTTP client unless one exists and forceNew is false
func (w *WebhookPlatform) Initialize(_ context.Context, forceNew bool) error {
	if w.client != nil && !forceNew {
		return nil
	}
	if w.custom != nil {
		w.client = w.custom
	} else {
		w.client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   w.config.Timeout,
		}
	}
	w.logger.Debug("HTTP client created", "timeout", w.config.Timeout)
	return nil
}

// Deliver performs the request. POST and PUT carry the text as the body:
// JSON encoded in JSON mode, URI-encoded plain text otherwise. A status of
// 400 or above is a TransportError.
func (w *WebhookPlatform) Deliver(ctx context.Context) (string, error) {
	msg := w.Message()
	target := msg.To()

	req, err := w.newRequest(ctx, msg)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Error("HTTP request failed", "url", target, "method", w.method, "error", err)
		return "", errors.NewTransportError(service.HTTP.String(), target, 0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	text := fmt.Sprintf("HTTP status: %d", resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		w.logger.Warn("HTTP request rejected", "url", target, "method", w.method, "status", resp.StatusCode)
		return text, errors.NewTransportError(service.HTTP.String(), target, resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	w.logger.Info("HTTP request sent", "url", target, "method", w.method, "status", resp.StatusCode, "duration", time.Since(start))
	return text, nil
}

// Close drops the HTTP client
func (w *WebhookPlatform) Close() error {
	w.Lock()
	defer w.Unlock()

	w.client = nil
	return w.Base.Close()
}

func (w *WebhookPlatform) newRequest(ctx context.Context, msg *message.Message) (*http.Request, error) {
	u, err := url.Parse(absoluteURL(msg.To()))
	if err != nil {
		return nil, errors.NewValidationError("to", "wrong URL: %q", msg.To()).WithCause(err)
	}
	if len(w.query) > 0 {
		q := u.Query()
		for k, v := range w.query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := ""
	if w.method == http.MethodPost || w.method == http.MethodPut {
		if w.json {
			data, err := json.Marshal(msg.Body())
			if err != nil {
				return nil, errors.NewValidationError("text", "body is not JSON encodable").WithCause(err)
			}
			body = bytes.NewReader(data)
			contentType = "application/json"
		} else {
			body = strings.NewReader(EncodeURI(msg.Text()))
			contentType = "text/plain; charset=utf-8"
		}
	}

	req, err := http.NewRequestWithContext(ctx, w.method, u.String(), body)
	if err != nil {
		return nil, errors.NewValidationError("to", "wrong URL: %q", msg.To()).WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// absoluteURL adds the http scheme to scheme-less destinations
func absoluteURL(to string) string {
	switch {
	case strings.HasPrefix(to, "http:"), strings.HasPrefix(to, "https:"):
		return to
	case strings.HasPrefix(to, "//"):
		return "http:" + to
	default:
		return "http://" + to
	}
}

func merge(dst, src, fallback map[string]string, replace bool) map[string]string {
	if replace {
		dst = make(map[string]string, len(src))
	}
	if len(src) == 0 && !replace {
		src = fallback
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	maps.Copy(dst, src)
	return dst
}
