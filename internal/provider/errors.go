package provider

import (
	"errors"
	"fmt"
)

// Error codes attached to *Error.
const (
	CodeTransport   = "TRANSPORT"
	CodeSchema      = "SCHEMA"
	CodeAuth        = "AUTH"
	CodeRateLimited = "RATE_LIMITED"
	CodeUnavailable = "UNAVAILABLE"
)

// ErrNotConfigured is returned when a source lacks a required credential.
var ErrNotConfigured = errors.New("source not configured")

// Error represents a failure from a source or metadata lookup.
type Error struct {
	Source     SourceName
	Code       string
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TransportError wraps a network or status failure.
func TransportError(source SourceName, msg string, err error) *Error {
	return &Error{Source: source, Code: CodeTransport, Message: msg, Retry: true, Err: err}
}

// SchemaError reports a response with an unexpected shape.
func SchemaError(source SourceName, msg string, err error) *Error {
	return &Error{Source: source, Code: CodeSchema, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
