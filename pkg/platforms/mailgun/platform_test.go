package mailgun

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
)

// capturedRequest is a messages API call as seen by the test server
type capturedRequest struct {
	path           string
	user, password string
	form           map[string][]string
	attachment     string
	attachmentData string
}

type mailgunServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func newMailgunServer(t *testing.T) *mailgunServer {
	t.Helper()
	s := &mailgunServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}

		var req capturedRequest
		req.path = r.URL.Path
		req.user, req.password, _ = r.BasicAuth()
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			if assert.NoError(t, r.ParseMultipartForm(1<<20)) && len(r.MultipartForm.File["attachment"]) > 0 {
				files := r.MultipartForm.File["attachment"]
				req.attachment = files[0].Filename
				if f, err := files[0].Open(); assert.NoError(t, err) {
					data, _ := io.ReadAll(f)
					_ = f.Close()
					req.attachmentData = string(data)
				}
			}
		} else {
			assert.NoError(t, r.ParseForm())
		}
		req.form = r.Form

		s.mu.Lock()
		s.requests = append(s.requests, req)
		status := s.status
		s.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":      "<20261019.1@mg.example.com>",
			"message": "Queued. Thank you.",
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *mailgunServer) Requests() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

func testConfig(apiBase string) *config.MailgunConfig {
	return &config.MailgunConfig{
		APIKey:  "key-test",
		Domain:  "mg.example.com",
		From:    "noreply@mg.example.com",
		APIBase: apiBase,
	}
}

func TestNewMailgunPlatform_Credentials(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		m, err := NewMailgunPlatform(&config.MailgunConfig{APIKey: "k", Domain: "d.example.com"})
		require.NoError(t, err)
		assert.Equal(t, Credentials{APIKey: "k", Domain: "d.example.com"}, m.Credentials())
	})

	t.Run("fallback", func(t *testing.T) {
		m, err := NewMailgunPlatform(nil, WithFallback(config.MailgunConfig{APIKey: "fk", Domain: "fallback.example.com"}))
		require.NoError(t, err)
		assert.Equal(t, Credentials{APIKey: "fk", Domain: "fallback.example.com"}, m.Credentials())
	})

	t.Run("partial explicit uses fallback", func(t *testing.T) {
		m, err := NewMailgunPlatform(&config.MailgunConfig{APIKey: "k"}, WithFallback(config.MailgunConfig{APIKey: "fk", Domain: "f.example.com"}))
		require.NoError(t, err)
		assert.Equal(t, "fk", m.Credentials().APIKey)
	})

	t.Run("none", func(t *testing.T) {
		_, err := NewMailgunPlatform(nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})
}

func TestMailgunPlatform_SetCredentials(t *testing.T) {
	m, err := NewMailgunPlatform(&config.MailgunConfig{APIKey: "k", Domain: "d.example.com"},
		WithFallback(config.MailgunConfig{APIKey: "fk", Domain: "f.example.com"}))
	require.NoError(t, err)

	require.NoError(t, m.SetCredentialPair("k2", "d2.example.com"))
	assert.Equal(t, Credentials{APIKey: "k2", Domain: "d2.example.com"}, m.Credentials())

	require.NoError(t, m.SetCredentials(&Credentials{APIKey: "k3", Domain: "d3.example.com"}))
	assert.Equal(t, "d3.example.com", m.Credentials().Domain)

	require.NoError(t, m.SetCredentials(nil))
	assert.Equal(t, Credentials{APIKey: "fk", Domain: "f.example.com"}, m.Credentials())

	err = m.SetCredentialPair("", "d.example.com")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, "fk", m.Credentials().APIKey, "rejected credentials leave the current ones")
}

func TestMailgunPlatform_Send(t *testing.T) {
	srv := newMailgunServer(t)
	m, err := NewMailgunPlatform(testConfig(srv.URL+"/v3"))
	require.NoError(t, err)

	opts := message.NewOptions().
		WithTo("alice@example.com, bob@example.com").
		WithSubject("Welcome").
		WithText("hello there")

	res := platform.Send(context.Background(), m, opts, nil)
	require.True(t, res.Success(), "result: %+v", res)
	assert.Equal(t, "Message sent: Queued. Thank you.", res.Message)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Contains(t, req.path, "/mg.example.com/messages")
	assert.Equal(t, "api", req.user)
	assert.Equal(t, "key-test", req.password)
	assert.Equal(t, []string{"noreply@mg.example.com"}, req.form["from"])
	assert.Equal(t, []string{"Welcome"}, req.form["subject"])
	assert.Equal(t, []string{"hello there"}, req.form["text"])
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, req.form["to"])
}

func TestMailgunPlatform_SendHTMLWithAttachment(t *testing.T) {
	srv := newMailgunServer(t)
	m, err := NewMailgunPlatform(testConfig(srv.URL))
	require.NoError(t, err)

	opts := message.NewOptions().
		WithTo("alice@example.com").
		WithFrom("reports@mg.example.com").
		WithSubject("Report").
		WithText("<h1>Report</h1>").
		WithHTML(true).
		WithAttachment("report.csv", []byte("a,b\n1,2\n"))

	res := platform.Send(context.Background(), m, opts, nil)
	require.True(t, res.Success(), "result: %+v", res)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].path, APIVersion+"/"), "unversioned API base gets %s: %s", APIVersion, reqs[0].path)
	assert.Equal(t, []string{"reports@mg.example.com"}, reqs[0].form["from"])
	assert.Equal(t, []string{"<h1>Report</h1>"}, reqs[0].form["html"])
	assert.Empty(t, reqs[0].form["text"])
	assert.Equal(t, "report.csv", reqs[0].attachment)
	assert.Equal(t, "a,b\n1,2\n", reqs[0].attachmentData)
	require.NotNil(t, m.Attachment())
}

func TestMailgunPlatform_SendFailure(t *testing.T) {
	srv := newMailgunServer(t)
	srv.mu.Lock()
	srv.status = http.StatusUnauthorized
	srv.mu.Unlock()
	m, err := NewMailgunPlatform(testConfig(srv.URL+"/v3"))
	require.NoError(t, err)

	res := platform.Send(context.Background(), m, message.NewOptions().WithTo("alice@example.com").WithText("x"), nil)

	assert.Equal(t, platform.StageTransport, res.Stage)
	require.True(t, errors.IsTransport(res.Err))
	assert.True(t, strings.HasPrefix(res.Message, "Mail send error: "))
	assert.True(t, strings.HasSuffix(res.Message, "; To: alice@example.com;"))

	var ne *errors.NotifyError
	require.ErrorAs(t, res.Err, &ne)
	assert.Equal(t, http.StatusUnauthorized, ne.StatusCode)
}

func TestVersionedAPIBase(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.eu.mailgun.net", "https://api.eu.mailgun.net/v3"},
		{"https://api.eu.mailgun.net/", "https://api.eu.mailgun.net/v3"},
		{"https://api.eu.mailgun.net/v3", "https://api.eu.mailgun.net/v3"},
		{"https://api.mailgun.net/v4/", "https://api.mailgun.net/v4"},
		{"http://127.0.0.1:8080/proxy", "http://127.0.0.1:8080/proxy/v3"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.want, versionedAPIBase(tt.base))
		})
	}
}

func TestMailgunPlatform_InitializeOnce(t *testing.T) {
	calls := 0
	m, err := NewMailgunPlatform(testConfig(""), WithClientFactory(func(cfg config.MailgunConfig) Client {
		calls++
		return NewMailgunClient(cfg)
	}))
	require.NoError(t, err)

	require.NoError(t, m.Initialize(context.Background(), false))
	require.NoError(t, m.Initialize(context.Background(), false))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "noreply@mg.example.com", m.Message().From())

	require.NoError(t, m.Initialize(context.Background(), true))
	assert.Equal(t, 2, calls)
}

func TestMailgunPlatform_InvalidRecipient(t *testing.T) {
	srv := newMailgunServer(t)
	m, err := NewMailgunPlatform(testConfig(srv.URL+"/v3"))
	require.NoError(t, err)

	res := platform.Send(context.Background(), m, message.NewOptions().WithTo("not-an-address"), nil)
	assert.Equal(t, platform.StageRejected, res.Stage)
	assert.Empty(t, srv.Requests())
}

func TestNewPlatform(t *testing.T) {
	d, err := NewPlatform(testConfig(""), platform.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "mailgun", d.ID().String())

	_, err = NewPlatform(&config.SlackConfig{}, platform.Deps{})
	assert.True(t, errors.IsInvalidArgument(err))
}
