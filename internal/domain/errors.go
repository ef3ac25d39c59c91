package domain

import "errors"

// Caller-visible error kinds. Adapter-level failures (rate limits, transient
// network errors, malformed payloads) never cross this boundary; the fetcher
// folds them into MISSING confidence on the affected metrics.
var (
	ErrInvalidAddress   = errors.New("INVALID_ADDRESS")
	ErrUnscorable       = errors.New("UNSCORABLE")
	ErrDeadlineExceeded = errors.New("DEADLINE_EXCEEDED")
	ErrInternal         = errors.New("INTERNAL")
	ErrNotFound         = errors.New("NOT_FOUND")
)

// Terminal reports whether the error kind must not be retried by the pipeline
func Terminal(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrUnscorable),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDeadlineExceeded):
		return true
	}
	return false
}
