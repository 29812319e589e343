// Package relayerr provides error types and handling for the form relay.
package relayerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Type categorizes errors for handling decisions.
type Type int

const (
	// Unknown is an uncategorized error.
	Unknown Type = iota
	// Transport represents network-level failures (DNS, connection).
	Transport
	// Timeout represents timeout errors.
	Timeout
	// FormNotFound means the selector matched no form in the document.
	FormNotFound
	// MalformedForm means a form was found but has no usable submission target.
	MalformedForm
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of Type.
func (t Type) String() string {
	switch t {
	case Transport:
		return "transport"
	case Timeout:
		return "timeout"
	case FormNotFound:
		return "form_not_found"
	case MalformedForm:
		return "malformed_form"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a categorized relay error.
type Error struct {
	Type       Type
	URL        string
	Operation  string
	Message    string
	Cause      error
	StatusCode int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.URL, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target by type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new Error.
func New(errType Type, url, operation, message string, cause error) *Error {
	return &Error{
		Type:      errType,
		URL:       url,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewTransportError creates a transport error.
func NewTransportError(url, operation string, cause error) *Error {
	return New(Transport, url, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(url, operation string, cause error) *Error {
	return New(Timeout, url, operation, "request timed out", cause)
}

// NewFormNotFoundError creates a form-not-found error.
func NewFormNotFoundError(url, selector string) *Error {
	msg := "no form in document"
	if selector != "" {
		msg = fmt.Sprintf("no form matches selector %q", selector)
	}
	return New(FormNotFound, url, "extract", msg, nil)
}

// NewMalformedFormError creates a malformed-form error.
func NewMalformedFormError(url, reason string) *Error {
	return New(MalformedForm, url, "extract", reason, nil)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(url, operation string) *Error {
	return New(Cancelled, url, operation, "operation cancelled", nil)
}

// Categorize determines the error type from a generic error.
func Categorize(err error, url, operation string) *Error {
	if err == nil {
		return nil
	}

	// Already categorized
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(url, operation)
	}

	if isTimeout(err) {
		return NewTimeoutError(url, operation, err)
	}

	if isNetworkError(err) {
		return NewTransportError(url, operation, err)
	}

	return New(Unknown, url, operation, err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp")
}

// IsTransport checks if an error is a transport failure (including timeouts).
func IsTransport(err error) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Type == Transport || relayErr.Type == Timeout
	}
	return false
}

// IsFormNotFound checks if an error is a form-not-found error.
func IsFormNotFound(err error) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Type == FormNotFound
	}
	return false
}

// IsMalformedForm checks if an error is a malformed-form error.
func IsMalformedForm(err error) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Type == MalformedForm
	}
	return false
}

// GetType extracts the error type from an error.
func GetType(err error) Type {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Type
	}
	return Unknown
}
