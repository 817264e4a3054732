package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "senderhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSendFlags_MessageOptions(t *testing.T) {
	f := &sendFlags{services: []string{"slack"}, to: "#ops", subject: "deploy", text: "-", html: true}
	opts, err := f.messageOptions(strings.NewReader("<b>done</b>\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"slack"}, opts.Services)
	assert.Equal(t, "#ops", *opts.To)
	assert.Equal(t, "deploy", *opts.Subject)
	assert.Equal(t, "<b>done</b>", *opts.Text)
	assert.True(t, *opts.HTML)
	assert.Nil(t, opts.From)

	_, err = (&sendFlags{}).messageOptions(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRunSend(t *testing.T) {
	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeConfig(t, `
services:
  webhook:
    url: `+srv.URL+`
    method: POST
settings:
  logger:
    level: silent
`)

	var out bytes.Buffer
	err := runSend(context.Background(), &out, &sendFlags{configFile: path, text: "hello world"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "http")
	assert.Contains(t, out.String(), "HTTP status: 200")
	assert.Equal(t, "hello%20world", <-bodies)
}

func TestRunSend_ReportsFailedChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := writeConfig(t, "services:\n  http:\n    url: "+srv.URL+"\nsettings:\n  logger:\n    level: silent\n")

	var out bytes.Buffer
	err := runSend(context.Background(), &out, &sendFlags{configFile: path, text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 channels failed")
	assert.Contains(t, out.String(), "transport")
}

func TestRunSend_UnknownService(t *testing.T) {
	path := writeConfig(t, "services:\n  pigeon: {}\n")
	err := runSend(context.Background(), io.Discard, &sendFlags{configFile: path, text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pigeon")
}

func TestServicesCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"services"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "http       http, request, webhook")
	assert.Contains(t, out.String(), "gmail")
}

func TestSendCmd_RequiresConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"send", "--text", "x"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")
}
