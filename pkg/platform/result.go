package platform

import (
	"time"

	"github.com/kart-io/senderhub/pkg/service"
)

// Stage identifies where a send ended or what a report concerns
type Stage string

// Send stages
const (
	// StageValidation reports a rejected field. The send continues.
	StageValidation Stage = "validation"
	// StageRejected means the message had no usable destination.
	StageRejected Stage = "rejected"
	// StageConfiguration means the provider client could not be set up.
	StageConfiguration Stage = "configuration"
	// StageTransport means the provider call failed.
	StageTransport Stage = "transport"
	// StageDelivered means the provider accepted the message.
	StageDelivered Stage = "delivered"
)

// Result is reported to a Callback for every validation failure and once
// for the outcome of each send
type Result struct {
	DispatchID string
	Service    service.ID
	// Message is the human-readable result, e.g. "Message sent: 250 OK".
	Message  string
	Err      error
	Stage    Stage
	Duration time.Duration
}

// Terminal reports whether r is the final outcome of a send rather than a
// validation report
func (r Result) Terminal() bool {
	return r.Stage != StageValidation
}

// Success reports whether the provider accepted the message
func (r Result) Success() bool {
	return r.Stage == StageDelivered && r.Err == nil
}

// Callback receives send results
type Callback func(Result)
