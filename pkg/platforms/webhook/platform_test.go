package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
)

type capturedRequest struct {
	method string
	query  url.Values
	header http.Header
	body   string
}

type recordingServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func newRecordingServer(t *testing.T, status int) *recordingServer {
	t.Helper()
	s := &recordingServer{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, capturedRequest{
			method: r.Method,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   string(body),
		})
		s.mu.Unlock()
		w.WriteHeader(s.status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *recordingServer) last(t *testing.T) capturedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func TestEncodeURI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"payload", "payload"},
		{"hello world", "hello%20world"},
		{"a=1&b=2", "a=1&b=2"},
		{"50% off", "50%25%20off"},
		{"ünïcode", "%C3%BCn%C3%AFcode"},
		{`{"k":"v"}`, "%7B%22k%22:%22v%22%7D"},
		{"http://x.io/p?q=1#frag", "http://x.io/p?q=1#frag"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeURI(tt.in), tt.in)
	}
}

func TestNewWebhookPlatform(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		w, err := NewWebhookPlatform(nil)
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, w.Method())
		assert.False(t, w.JSON())
		assert.Empty(t, w.Message().To())
	})

	t.Run("explicit config", func(t *testing.T) {
		w, err := NewWebhookPlatform(&config.HTTPConfig{
			URL:     "https://hooks.example.com/x",
			Method:  "put",
			Headers: map[string]string{"X-Token": "t"},
			JSON:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPut, w.Method())
		assert.Equal(t, "https://hooks.example.com/x", w.Message().To())
		assert.Equal(t, map[string]string{"X-Token": "t"}, w.Headers())
		assert.True(t, w.JSON())
	})

	t.Run("invalid method falls back", func(t *testing.T) {
		w, err := NewWebhookPlatform(&config.HTTPConfig{Method: "PATCH"}, WithFallback(config.HTTPConfig{Method: "GET"}))
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, w.Method())
	})

	t.Run("invalid method without fallback", func(t *testing.T) {
		_, err := NewWebhookPlatform(&config.HTTPConfig{Method: "PATCH"})
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})

	t.Run("fallback url and headers", func(t *testing.T) {
		w, err := NewWebhookPlatform(nil, WithFallback(config.HTTPConfig{
			URL:     "http://localhost",
			Headers: map[string]string{"Authorization": "Bearer x"},
			Query:   map[string]string{"source": "senderhub"},
		}))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost", w.Message().To())
		assert.Equal(t, map[string]string{"Authorization": "Bearer x"}, w.Headers())
		assert.Equal(t, map[string]string{"source": "senderhub"}, w.Query())
	})
}

func TestWebhookPlatform_SetTo(t *testing.T) {
	w, err := NewWebhookPlatform(nil)
	require.NoError(t, err)

	require.NoError(t, w.SetTo("https://example.com/a"))
	err = w.SetTo("mailto:someone")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "https://example.com/a", w.Message().To())

	w, err = NewWebhookPlatform(nil, WithFallback(config.HTTPConfig{URL: "http://fallback.example.com"}))
	require.NoError(t, err)
	require.NoError(t, w.SetTo("not a url"))
	assert.Equal(t, "http://fallback.example.com", w.Message().To())
}

func TestWebhookPlatform_AddHeadersAndQuery(t *testing.T) {
	w, err := NewWebhookPlatform(&config.HTTPConfig{Headers: map[string]string{"A": "1"}})
	require.NoError(t, err)

	w.AddHeaders(map[string]string{"B": "2"}, false)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, w.Headers())

	w.AddHeaders(map[string]string{"C": "3"}, true)
	assert.Equal(t, map[string]string{"C": "3"}, w.Headers())

	w.AddQuery(map[string]string{"page": "1"}, false)
	w.AddQuery(map[string]string{"page": "2", "size": "10"}, false)
	assert.Equal(t, map[string]string{"page": "2", "size": "10"}, w.Query())

	w.AddQuery(nil, true)
	assert.Empty(t, w.Query())
}

func TestWebhookPlatform_PostPlainTextIsURIEncoded(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	w, err := NewWebhookPlatform(&config.HTTPConfig{Method: "POST", URL: srv.URL})
	require.NoError(t, err)

	res := platform.Send(context.Background(), w, message.NewOptions().WithText("payload with spaces"), nil)

	require.True(t, res.Success(), "result: %+v", res)
	assert.Equal(t, "HTTP status: 200", res.Message)
	req := srv.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "payload%20with%20spaces", req.body)
	assert.Equal(t, "text/plain; charset=utf-8", req.header.Get("Content-Type"))
}

func TestWebhookPlatform_PutJSON(t *testing.T) {
	srv := newRecordingServer(t, http.StatusCreated)
	w, err := NewWebhookPlatform(&config.HTTPConfig{Method: "PUT", URL: srv.URL, JSON: true})
	require.NoError(t, err)

	res := platform.Send(context.Background(), w, message.NewOptions().WithText("payload"), nil)
	require.True(t, res.Success())
	assert.Equal(t, "HTTP status: 201", res.Message)
	req := srv.last(t)
	assert.Equal(t, `"payload"`, req.body)
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))
}

func TestWebhookPlatform_JSONPayload(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	w, err := NewWebhookPlatform(&config.HTTPConfig{URL: srv.URL})
	require.NoError(t, err)

	opts := message.NewOptions().WithHTTP(message.HTTPOptions{
		JSON:    message.Bool(true),
		Payload: map[string]any{"event": "deploy", "ok": true},
	})

	res := platform.Send(context.Background(), w, opts, nil)
	require.True(t, res.Success())
	assert.JSONEq(t, `{"event":"deploy","ok":true}`, srv.last(t).body)
}

func TestWebhookPlatform_GetCarriesNoBody(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	w, err := NewWebhookPlatform(&config.HTTPConfig{
		Method: "GET",
		URL:    srv.URL,
		Query:  map[string]string{"channel": "ops"},
	})
	require.NoError(t, err)

	opts := message.NewOptions().WithText("ignored").WithHTTP(message.HTTPOptions{
		Headers: map[string]string{"X-Request-Source": "test"},
		Query:   map[string]string{"priority": "high"},
	})
	res := platform.Send(context.Background(), w, opts, nil)
	require.True(t, res.Success())

	req := srv.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Empty(t, req.body)
	assert.Equal(t, "ops", req.query.Get("channel"))
	assert.Equal(t, "high", req.query.Get("priority"))
	assert.Equal(t, "test", req.header.Get("X-Request-Source"))
}

func TestWebhookPlatform_ErrorStatus(t *testing.T) {
	srv := newRecordingServer(t, http.StatusServiceUnavailable)
	w, err := NewWebhookPlatform(&config.HTTPConfig{URL: srv.URL})
	require.NoError(t, err)

	res := platform.Send(context.Background(), w, message.NewOptions().WithText("x"), nil)

	assert.Equal(t, platform.StageTransport, res.Stage)
	assert.Equal(t, "HTTP status: 503", res.Message)
	var ne *errors.NotifyError
	require.ErrorAs(t, res.Err, &ne)
	assert.Equal(t, http.StatusServiceUnavailable, ne.StatusCode)
}

func TestWebhookPlatform_ConnectionError(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	addr := srv.URL
	srv.Close()

	w, err := NewWebhookPlatform(&config.HTTPConfig{URL: addr})
	require.NoError(t, err)

	res := platform.Send(context.Background(), w, message.NewOptions().WithText("x"), nil)
	assert.Equal(t, platform.StageTransport, res.Stage)
	var ne *errors.NotifyError
	require.ErrorAs(t, res.Err, &ne)
	assert.Zero(t, ne.StatusCode)
}

func TestWebhookPlatform_InvalidOverrides(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK)
	w, err := NewWebhookPlatform(&config.HTTPConfig{URL: srv.URL})
	require.NoError(t, err)
	var reports []platform.Result

	opts := message.NewOptions().WithText("x").WithHTTP(message.HTTPOptions{
		URL:    message.String("ftp://files.example.com"),
		Method: message.String("TRACE"),
	})
	res := platform.Send(context.Background(), w, opts, func(r platform.Result) {
		if !r.Terminal() {
			reports = append(reports, r)
		}
	})

	require.True(t, res.Success(), "invalid overrides keep the stored URL and method")
	require.Len(t, reports, 2)
	assert.Equal(t, http.MethodPost, srv.last(t).method)
}

func TestWebhookPlatform_NoURL(t *testing.T) {
	w, err := NewWebhookPlatform(nil)
	require.NoError(t, err)

	res := platform.Send(context.Background(), w, message.NewOptions().WithText("x"), nil)
	assert.Equal(t, platform.StageRejected, res.Stage)
}

func TestWebhookPlatform_InitializeOnce(t *testing.T) {
	custom := &http.Client{}
	w, err := NewWebhookPlatform(nil, WithHTTPClient(custom))
	require.NoError(t, err)

	require.NoError(t, w.Initialize(context.Background(), false))
	first := w.client
	assert.Same(t, custom, first)
	require.NoError(t, w.Initialize(context.Background(), false))
	assert.Same(t, first, w.client)

	w2, err := NewWebhookPlatform(nil)
	require.NoError(t, err)
	require.NoError(t, w2.Initialize(context.Background(), false))
	c1 := w2.client
	require.NoError(t, w2.Initialize(context.Background(), true))
	assert.NotSame(t, c1, w2.client)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "http://localhost", absoluteURL("localhost"))
	assert.Equal(t, "http://localhost", absoluteURL("http://localhost"))
	assert.Equal(t, "http://cdn.example.com/x", absoluteURL("//cdn.example.com/x"))
	assert.Equal(t, "http://www.example.com", absoluteURL("www.example.com"))
	assert.Equal(t, "https://example.com", absoluteURL("https://example.com"))
}

func TestNewPlatform(t *testing.T) {
	d, err := NewPlatform(&config.HTTPConfig{}, platform.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "http", d.ID().String())

	_, err = NewPlatform(map[string]any{}, platform.Deps{})
	assert.True(t, errors.IsInvalidArgument(err))
}
