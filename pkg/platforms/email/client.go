package email

import (
	"context"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/kart-io/senderhub/pkg/config/platforms"
)

// MailClient delivers composed messages to a mail relay
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// ClientFactory builds a MailClient for a relay host
type ClientFactory func(host string, opts ...mail.Option) (MailClient, error)

// NewGoMailClient is the default ClientFactory, backed by go-mail
func NewGoMailClient(host string, opts ...mail.Option) (MailClient, error) {
	return mail.NewClient(host, opts...)
}

// tlsPolicy converts a configured policy name to a go-mail TLSPolicy
func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case platforms.TLSOpportunistic:
		return mail.TLSOpportunistic
	case platforms.TLSNone:
		return mail.NoTLS
	default:
		return mail.TLSMandatory
	}
}
