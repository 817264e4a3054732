// Package service maps the public channel names accepted in configuration
// and message options to the internal channel IDs of the adapters.
package service

import (
	"sort"
	"strings"

	"github.com/kart-io/senderhub/pkg/errors"
)

// ID identifies a channel adapter.
type ID string

// Channel adapter IDs
const (
	MailRelay ID = "mailrelay"
	Mailgun   ID = "mailgun"
	Slack     ID = "slack"
	Telegram  ID = "telegram"
	HTTP      ID = "http"
)

// String returns the ID as a string
func (id ID) String() string { return string(id) }

// SMTP is the public name of a mail relay whose provider is given by the
// "service" key of its configuration block instead of the block name.
const SMTP = "smtp"

// WellKnownMailServices are the mail relay providers addressable by name.
var WellKnownMailServices = []string{
	"gmail", "yahoo", "outlook", "hotmail", "icloud",
	"zoho", "yandex", "fastmail", "sendgrid", "mailgun-smtp",
}

var names = func() map[string]ID {
	m := map[string]ID{
		SMTP:       MailRelay,
		"mailgun":  Mailgun,
		"slack":    Slack,
		"telegram": Telegram,
		"http":     HTTP,
		"request":  HTTP,
		"webhook":  HTTP,
	}
	for _, svc := range WellKnownMailServices {
		m[svc] = MailRelay
	}
	return m
}()

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsSupported reports whether name is a known public channel name.
func IsSupported(name string) bool {
	_, ok := names[normalize(name)]
	return ok
}

// Lookup returns the channel ID behind a public name.
func Lookup(name string) (ID, error) {
	id, ok := names[normalize(name)]
	if !ok {
		return "", errors.NewUnsupportedServiceError(name)
	}
	return id, nil
}

// Names returns the public names mapped to id, sorted.
func Names(id ID) []string {
	var out []string
	for name, v := range names {
		if v == id {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns every channel ID, sorted.
func IDs() []ID {
	return []ID{HTTP, Mailgun, MailRelay, Slack, Telegram}
}

// IsMailRelayService reports whether name is a mail relay provider name,
// either well known or the generic "smtp".
func IsMailRelayService(name string) bool {
	id, ok := names[normalize(name)]
	return ok && id == MailRelay
}
