// Package errors provides custom error types for the storefront chat client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common precondition failures
var (
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrStreamBusy       = errors.New("a message is already streaming")
	ErrNoSession        = errors.New("no session selected")
)

// TransportError represents a network-level failure: connection refused, DNS
// failure, a non-2xx status before any body, or a read failure mid-stream.
type TransportError struct {
	Op       string // operation being performed, e.g. "stream", "list sessions"
	Endpoint string
	Status   int // HTTP status if one was received, 0 otherwise
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transport error [%d] during %s at %s", e.Status, e.Op, e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport error during %s at %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("transport error during %s at %s", e.Op, e.Endpoint)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError creates a TransportError wrapping an underlying cause
func NewTransportError(op, endpoint string, err error) *TransportError {
	return &TransportError{Op: op, Endpoint: endpoint, Err: err}
}

// NewStatusError creates a TransportError for a non-2xx response
func NewStatusError(op, endpoint string, status int) *TransportError {
	return &TransportError{Op: op, Endpoint: endpoint, Status: status}
}

// ProtocolError represents a malformed stream frame: a line that is not valid
// JSON or JSON that matches none of the recognized frame shapes.
type ProtocolError struct {
	Line    string // offending line, truncated for display
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Message)
}

// NewProtocolError creates a ProtocolError, truncating the offending line
func NewProtocolError(message, line string) *ProtocolError {
	const maxLine = 200
	if len(line) > maxLine {
		line = line[:maxLine] + "..."
	}
	return &ProtocolError{Message: message, Line: line}
}

// ApplicationError represents an explicit error frame emitted deliberately by
// the agent backend.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "agent reported an error"
	}
	return fmt.Sprintf("agent error: %s", e.Message)
}

// NewApplicationError creates an ApplicationError from an error frame
func NewApplicationError(message string) *ApplicationError {
	return &ApplicationError{Message: message}
}

// PreconditionError represents a request rejected synchronously before any
// network call was made.
type PreconditionError struct {
	Reason error // one of the sentinel errors above
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %v", e.Reason)
}

// Is allows comparison against the wrapped sentinel
func (e *PreconditionError) Is(target error) bool {
	if _, ok := target.(*PreconditionError); ok {
		return true
	}
	return errors.Is(e.Reason, target)
}

// NewPreconditionError wraps a sentinel in a PreconditionError
func NewPreconditionError(reason error) *PreconditionError {
	return &PreconditionError{Reason: reason}
}

// IsTransportError checks whether err is (or wraps) a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocolError checks whether err is (or wraps) a ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsApplicationError checks whether err is (or wraps) an ApplicationError
func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsPreconditionError checks whether err is (or wraps) a PreconditionError
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// GetHTTPStatus extracts the HTTP status from a TransportError, or 0
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// GetEndpoint extracts the endpoint from a TransportError, or ""
func GetEndpoint(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Endpoint
	}
	return ""
}
