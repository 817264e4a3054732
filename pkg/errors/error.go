// Package errors provides error types for senderhub
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// NotifyError represents a senderhub error with structured information
type NotifyError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Service    string    `json:"service,omitempty"`
	Target     string    `json:"target,omitempty"`
	Key        string    `json:"key,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	Cause error `json:"-"`
}

// Sentinel errors usable with errors.Is; matching is by code.
var (
	ErrValidation         = &NotifyError{Code: ErrCodeValidation}
	ErrConfiguration      = &NotifyError{Code: ErrCodeConfiguration}
	ErrUnsupportedService = &NotifyError{Code: ErrCodeUnsupportedService}
	ErrTransport          = &NotifyError{Code: ErrCodeTransport}
	ErrInvalidArgument    = &NotifyError{Code: ErrCodeInvalidArgument}
)

// New creates a new NotifyError
func New(code ErrorCode, message string) *NotifyError {
	return &NotifyError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new NotifyError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *NotifyError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message
func Wrap(err error, code ErrorCode, message string) *NotifyError {
	return New(code, message).WithCause(err)
}

// NewValidationError creates a validation error for the given field
func NewValidationError(field, format string, args ...interface{}) *NotifyError {
	e := Newf(ErrCodeValidation, format, args...)
	e.Key = field
	return e
}

// NewConfigurationError creates a configuration error naming the offending key
func NewConfigurationError(key, format string, args ...interface{}) *NotifyError {
	e := Newf(ErrCodeConfiguration, format, args...)
	e.Key = key
	return e
}

// NewUnsupportedServiceError creates an error for an unknown channel name
func NewUnsupportedServiceError(name string) *NotifyError {
	e := Newf(ErrCodeUnsupportedService, "service %q not supported", name)
	e.Service = name
	return e
}

// NewTransportError wraps a provider failure for a service and destination
func NewTransportError(service, target string, statusCode int, cause error) *NotifyError {
	e := Wrap(cause, ErrCodeTransport, "provider call failed")
	e.Service = service
	e.Target = target
	e.StatusCode = statusCode
	return e
}

// NewInvalidArgumentError creates an invalid argument error
func NewInvalidArgumentError(format string, args ...interface{}) *NotifyError {
	return Newf(ErrCodeInvalidArgument, format, args...)
}

// Error implements the error interface
func (e *NotifyError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Service != "" && e.Target != "":
		msg = fmt.Sprintf("%s (service: %s, target: %s)", msg, e.Service, e.Target)
	case e.Service != "":
		msg = fmt.Sprintf("%s (service: %s)", msg, e.Service)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s [status %d]", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *NotifyError) Is(target error) bool {
	if targetErr, ok := target.(*NotifyError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (e *NotifyError) MarshalJSON() ([]byte, error) {
	type Alias NotifyError
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(&struct {
		*Alias
		CauseMessage string `json:"cause_message,omitempty"`
	}{
		Alias:        (*Alias)(e),
		CauseMessage: cause,
	})
}

// WithCause adds a cause error
func (e *NotifyError) WithCause(cause error) *NotifyError {
	e.Cause = cause
	return e
}

// WithService sets the service
func (e *NotifyError) WithService(service string) *NotifyError {
	e.Service = service
	return e
}

// WithTarget sets the target
func (e *NotifyError) WithTarget(target string) *NotifyError {
	e.Target = target
	return e
}

// CodeOf returns the code of the first NotifyError in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ne *NotifyError
	if stderrors.As(err, &ne) {
		return ne.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return stderrors.Is(err, ErrValidation) }

// IsConfiguration reports whether err is a configuration error
func IsConfiguration(err error) bool { return stderrors.Is(err, ErrConfiguration) }

// IsUnsupportedService reports whether err is an unsupported service error
func IsUnsupportedService(err error) bool { return stderrors.Is(err, ErrUnsupportedService) }

// IsTransport reports whether err is a transport error
func IsTransport(err error) bool { return stderrors.Is(err, ErrTransport) }

// IsInvalidArgument reports whether err is an invalid argument error
func IsInvalidArgument(err error) bool { return stderrors.Is(err, ErrInvalidArgument) }
