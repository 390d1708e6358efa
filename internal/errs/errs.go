// Package errs holds the error kinds shared by feeds, hosts, the notifier and
// the block-list store.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport wraps network or I/O failures reaching a feed, host or notifier.
	ErrTransport = errors.New("transport failure")
	// ErrUnexpectedBody means a response did not parse into the expected shape.
	ErrUnexpectedBody = errors.New("unexpected response body")
	// ErrNoPayload means a remote invocation succeeded but returned nothing.
	ErrNoPayload = errors.New("no payload returned")
	// ErrRemoteInvocation means the remote function could not be invoked at all.
	ErrRemoteInvocation = errors.New("remote invocation failed")
	ErrStorage          = errors.New("storage failure")
	ErrConfig           = errors.New("invalid configuration")
)

// StatusError is a non-success HTTP response. Body is kept for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	b := strings.TrimSpace(e.Body)
	if b == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	if len(b) > 256 {
		b = b[:256] + "..."
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, b)
}

// RuntimeError is reported by the remote function when it trapped internally.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "remote runtime failure: " + e.Message
}

// SlotError is a failure of a whole dispatch slot, reported once for every
// pair that was in the slot's batch. The pairs themselves were never looked
// up, so a status inside a SlotError says nothing about any single pool.
type SlotError struct {
	Host string
	Slot int
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s slot %d: %v", e.Host, e.Slot, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

func Status(code int, body string) error {
	return &StatusError{Code: code, Body: body}
}

func Runtime(msg string) error {
	return &RuntimeError{Message: msg}
}

func Transport(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func UnexpectedBody(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedBody, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err carries a 404 for the pair itself. A 404
// behind a SlotError came from the slot endpoint and does not count.
func IsNotFound(err error) bool {
	var slot *SlotError
	if errors.As(err, &slot) {
		return false
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// IsRetryable reports whether a per-pair dispatch failure should be re-buffered.
// Everything except a confirmed 404 is retryable.
func IsRetryable(err error) bool {
	return err != nil && !IsNotFound(err)
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	var se *StatusError
	var re *RuntimeError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.Code)
	case errors.As(err, &re):
		return "runtime"
	case errors.Is(err, ErrNoPayload):
		return "no_payload"
	case errors.Is(err, ErrUnexpectedBody):
		return "unexpected_body"
	case errors.Is(err, ErrRemoteInvocation):
		return "remote_invocation"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "other"
	}
}
