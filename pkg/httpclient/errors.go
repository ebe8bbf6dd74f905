package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrUnavailable marks a transient upstream failure that survived every retry.
var ErrUnavailable = errors.New("upstream service unavailable")

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.URL, e.StatusCode, e.Message)
}

func (e *StatusError) Upstream() (string, int) {
	return e.URL, e.StatusCode
}

// UnavailableError carries the last transient failure once retries are
// exhausted. It matches ErrUnavailable under errors.Is.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrUnavailable, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Retryable reports whether err is worth another attempt: connection
// failures, timeouts, 429 and 5xx responses. Cancellation and every other
// status are terminal.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// StatusCode extracts the upstream status from err, or 0 when err is not a
// StatusError.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
