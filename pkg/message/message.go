package message

import (
	"fmt"

	"github.com/kart-io/senderhub/pkg/errors"
)

// Message is the mutable record of an outgoing message. Each channel adapter
// owns one and reuses it across sends unless Reset is called.
//
// Setters that validate reject bad input without touching the stored value.
type Message struct {
	from    string
	to      string
	subject string
	text    string
	body    any
	useHTML bool

	validationErrors string
}

// New creates an empty message.
func New() *Message {
	return &Message{}
}

// From returns the sender address.
func (m *Message) From() string { return m.from }

// To returns the destination (address list, URL or channel name depending on the adapter).
func (m *Message) To() string { return m.to }

// Subject returns the subject line.
func (m *Message) Subject() string { return m.subject }

// Text returns the message body as text.
func (m *Message) Text() string { return m.text }

// Body returns the pre-formatted body passed to SetText with dontConvert,
// or the text when none was given.
func (m *Message) Body() any {
	if m.body != nil {
		return m.body
	}
	return m.text
}

// HTMLFlag reports whether Text is HTML.
func (m *Message) HTMLFlag() bool { return m.useHTML }

// ValidationErrors returns the addresses rejected by batch validation, each followed by "; ".
func (m *Message) ValidationErrors() string { return m.validationErrors }

// ClearValidationErrors empties the rejected address log.
func (m *Message) ClearValidationErrors() { m.validationErrors = "" }

// SetFrom stores the valid addresses in value.
func (m *Message) SetFrom(value string) error {
	valid, ok := m.ValidateEmailList(value)
	if !ok {
		return errors.NewValidationError("from", "wrong From email: %q", value)
	}
	m.from = valid
	return nil
}

// SetTo stores value as the destination. With requireEmail the value must
// contain at least one valid address and only the valid ones are kept;
// otherwise it is stored verbatim.
func (m *Message) SetTo(value string, requireEmail bool) error {
	if !requireEmail {
		m.to = value
		return nil
	}
	valid, ok := m.ValidateEmailList(value)
	if !ok {
		return errors.NewValidationError("to", "wrong To email field: %q", value)
	}
	m.to = valid
	return nil
}

// SetURL stores value as the destination if it is a valid URL.
func (m *Message) SetURL(value string) error {
	if !ValidateURLSyntax(value) {
		return errors.NewValidationError("to", "wrong URL: %q", value)
	}
	m.to = value
	return nil
}

// SetSubject sets the subject line.
func (m *Message) SetSubject(subject string) { m.subject = subject }

// SetText sets the body. The value is converted to text unless dontConvert is
// set, in which case it is kept as-is (for example a JSON document for the
// HTTP channel) and Text returns its printed form.
func (m *Message) SetText(value any, dontConvert bool) {
	m.text = toText(value)
	if dontConvert {
		m.body = value
	} else {
		m.body = nil
	}
}

// SetHTMLFlag selects whether Text is HTML.
func (m *Message) SetHTMLFlag(useHTML bool) { m.useHTML = useHTML }

// Reset clears every field.
func (m *Message) Reset() { *m = Message{} }

func toText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Populate copies the common fields present in opts into the message. A
// failure to set to or from is passed to onError and the remaining fields are
// still applied. setTo overrides how the destination is validated; nil means
// SetTo without email validation.
func (m *Message) Populate(opts *Options, setTo func(string) error, onError func(error)) {
	if opts == nil {
		return
	}
	if onError == nil {
		onError = func(error) {}
	}
	if setTo == nil {
		setTo = func(v string) error { return m.SetTo(v, false) }
	}

	if opts.To != nil {
		if err := setTo(*opts.To); err != nil {
			onError(err)
		}
	}
	if opts.From != nil {
		if err := m.SetFrom(*opts.From); err != nil {
			onError(err)
		}
	}
	if opts.Subject != nil {
		m.SetSubject(*opts.Subject)
	}
	if opts.Text != nil {
		m.SetText(*opts.Text, false)
	}
	if opts.HTML != nil {
		m.SetHTMLFlag(*opts.HTML)
	}
}
