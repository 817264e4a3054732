package message

// Options is the per-send input shared by all channels. Nil fields are
// absent and leave the adapter's stored value untouched.
type Options struct {
	To      *string
	From    *string
	Subject *string
	Text    *string
	HTML    *bool

	// Services restricts a dispatch to these public channel names.
	Services []string

	Attachment *Attachment

	// Channel-specific overrides, applied after the common fields.
	Slack    *SlackOptions
	Telegram *TelegramOptions
	HTTP     *HTTPOptions
}

// Attachment is a file forwarded by channels that support attachments.
type Attachment struct {
	Filename string
	Data     []byte
}

// SlackOptions overrides the common fields for the Slack channel.
type SlackOptions struct {
	To   *string
	Text *string
}

// TelegramOptions overrides the common fields for the Telegram channel.
type TelegramOptions struct {
	Text   *string
	ChatID *int64
}

// HTTPOptions overrides the common fields for the generic HTTP channel.
type HTTPOptions struct {
	URL            *string
	Method         *string
	Headers        map[string]string
	ReplaceHeaders bool
	Query          map[string]string
	ReplaceQuery   bool
	JSON           *bool
	// Payload is sent as the body instead of Text; in JSON mode it is encoded as a document.
	Payload any
}

// NewOptions creates empty message options.
func NewOptions() *Options {
	return &Options{}
}

// WithTo sets the destination
func (o *Options) WithTo(to string) *Options {
	o.To = &to
	return o
}

// WithFrom sets the sender address
func (o *Options) WithFrom(from string) *Options {
	o.From = &from
	return o
}

// WithSubject sets the subject
func (o *Options) WithSubject(subject string) *Options {
	o.Subject = &subject
	return o
}

// WithText sets the body
func (o *Options) WithText(text string) *Options {
	o.Text = &text
	return o
}

// WithHTML marks the body as HTML
func (o *Options) WithHTML(useHTML bool) *Options {
	o.HTML = &useHTML
	return o
}

// WithServices restricts delivery to the named channels
func (o *Options) WithServices(names ...string) *Options {
	o.Services = append(o.Services, names...)
	return o
}

// WithAttachment attaches a file
func (o *Options) WithAttachment(filename string, data []byte) *Options {
	o.Attachment = &Attachment{Filename: filename, Data: data}
	return o
}

// WithSlack sets Slack-specific overrides
func (o *Options) WithSlack(slack SlackOptions) *Options {
	o.Slack = &slack
	return o
}

// WithTelegram sets Telegram-specific overrides
func (o *Options) WithTelegram(telegram TelegramOptions) *Options {
	o.Telegram = &telegram
	return o
}

// WithHTTP sets HTTP-specific overrides
func (o *Options) WithHTTP(http HTTPOptions) *Options {
	o.HTTP = &http
	return o
}

// IsEmpty reports whether o carries nothing to send.
func (o *Options) IsEmpty() bool {
	if o == nil {
		return true
	}
	return o.To == nil && o.From == nil && o.Subject == nil && o.Text == nil &&
		o.HTML == nil && len(o.Services) == 0 && o.Attachment == nil &&
		o.Slack == nil && o.Telegram == nil && o.HTTP == nil
}

// String returns a pointer to s, for filling option fields inline.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int64 returns a pointer to i.
func Int64(i int64) *int64 { return &i }
