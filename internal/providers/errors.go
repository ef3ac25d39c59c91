package providers

import (
	"errors"
	"fmt"
)

// ErrorKind is the adapter error taxonomy surfaced to the fetcher. These
// kinds never reach API callers; the fetcher handles them by failover or by
// marking the affected metric MISSING.
type ErrorKind string

const (
	ErrNotSupported ErrorKind = "NOT_SUPPORTED"
	ErrRateLimited  ErrorKind = "RATE_LIMITED"
	ErrTransient    ErrorKind = "TRANSIENT"
	ErrNotFound     ErrorKind = "NOT_FOUND"
	ErrMalformed    ErrorKind = "MALFORMED"
	ErrAuth         ErrorKind = "AUTH"
)

// Error is the typed failure every adapter returns
type Error struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the fetcher may continue down the provider list
// after this failure. NOT_FOUND is authoritative and stops the chain.
func (e *Error) Retryable() bool {
	return e.Kind != ErrNotFound && e.Kind != ErrNotSupported
}

// NewError builds a taxonomy error for a provider
func NewError(provider string, kind ErrorKind, msg string, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the taxonomy kind from an error chain, or "" if the error
// did not originate in an adapter
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
