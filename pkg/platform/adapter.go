package platform

import (
	"sync"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/service"
)

// Base provides the common part of a Driver: the channel ID, the message
// record, the send lock and a logger. Adapters embed *Base and override
// what differs.
type Base struct {
	sync.Mutex

	id     service.ID
	msg    *message.Message
	logger logger.Logger
}

// NewBase creates the common driver state for a channel
func NewBase(id service.ID, log logger.Logger) *Base {
	return &Base{
		id:     id,
		msg:    message.New(),
		logger: logger.OrDefault(log),
	}
}

// ID returns the channel ID
func (b *Base) ID() service.ID {
	return b.id
}

// Message returns the message record
func (b *Base) Message() *message.Message {
	return b.msg
}

// Logger returns the adapter logger
func (b *Base) Logger() logger.Logger {
	return b.logger
}

// SetTo stores the destination verbatim
func (b *Base) SetTo(to string) error {
	return b.msg.SetTo(to, false)
}

// SetEmailTo stores the destination after validating it as an address list
func (b *Base) SetEmailTo(to string) error {
	return b.msg.SetTo(to, true)
}

// Merge applies no channel overrides
func (b *Base) Merge(*message.Options, func(error)) {}

// Destination returns the message's destination
func (b *Base) Destination() (string, error) {
	if to := b.msg.To(); to != "" {
		return to, nil
	}
	return "", errors.NewValidationError("to", "destination not specified").WithService(b.id.String())
}

// Close provides default close implementation
func (b *Base) Close() error {
	b.logger.Debug("Channel adapter closed", "channel", b.id)
	return nil
}
