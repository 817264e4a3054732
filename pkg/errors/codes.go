// Package errors provides error codes for senderhub
package errors

// ErrorCode represents a senderhub error code
type ErrorCode string

const (
	// ErrCodeValidation indicates a field value failed its syntactic validator
	// (from/to address, URL, HTTP method).
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates required credentials or settings could not be resolved.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeUnsupportedService indicates an unrecognized channel name.
	ErrCodeUnsupportedService ErrorCode = "UNSUPPORTED_SERVICE"

	// ErrCodeTransport indicates the underlying provider call failed.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// ErrCodeInvalidArgument indicates a caller passed empty or malformed arguments.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// String returns the string representation of the error code
func (c ErrorCode) String() string {
	return string(c)
}

// IsTerminal reports whether errors with this code end a send attempt.
// Validation failures are reported while the remaining fields keep populating.
func (c ErrorCode) IsTerminal() bool {
	return c != ErrCodeValidation
}
