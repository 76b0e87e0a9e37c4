package upstream

import (
	"errors"
	"fmt"
)

// SessionError reports a failed CSRF/cookie handshake. The dependent
// mutation must be aborted; a retry needs a fresh handshake.
type SessionError struct {
	Endpoint string
	Status   int
	Reason   string
}

func (e *SessionError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("session handshake with %s failed (status %d): %s", e.Endpoint, e.Status, e.Reason)
	}
	return fmt.Sprintf("session handshake with %s failed: %s", e.Endpoint, e.Reason)
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Status  int
	Message string
	Body    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream request failed with HTTP status: %d", e.Status)
}

// DomainError is a 2xx response whose business message signals failure,
// or whose body could not be interpreted where structure is mandatory.
type DomainError struct {
	Message string
	Body    string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ParseError is a response body that is not valid JSON.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse upstream response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsSessionError reports whether err carries a *SessionError.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	var se *SessionError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
