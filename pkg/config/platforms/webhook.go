package platforms

import (
	"strings"
	"time"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/message"
)

// HTTP methods accepted by the HTTP channel
var ValidMethods = []string{"GET", "POST", "PUT", "DELETE"}

// DefaultMethod is used when neither the message nor the config names a valid method.
const DefaultMethod = "POST"

// IsValidMethod reports whether method is one of ValidMethods (case-insensitive)
func IsValidMethod(method string) bool {
	method = strings.ToUpper(method)
	for _, valid := range ValidMethods {
		if method == valid {
			return true
		}
	}
	return false
}

// HTTPConfig represents configuration for the generic HTTP channel
type HTTPConfig struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty" split_words:"true"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty" split_words:"true"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" split_words:"true"`
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty" split_words:"true"`
	JSON    bool              `json:"json,omitempty" yaml:"json,omitempty" split_words:"true"`

	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" split_words:"true"`
}

// Validate validates the HTTP configuration
func (c *HTTPConfig) Validate() error {
	if c.URL != "" && !message.ValidateURLSyntax(c.URL) {
		return errors.NewConfigurationError("url", "wrong URL: %q", c.URL)
	}
	if c.Method != "" && !IsValidMethod(c.Method) {
		return errors.NewConfigurationError("method", "invalid HTTP method: %s", c.Method)
	}
	if c.Timeout < 0 {
		return errors.NewConfigurationError("timeout", "timeout cannot be negative")
	}
	return nil
}
