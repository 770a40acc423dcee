package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTimeout indicates a request exceeded Config.Timeout.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return "timeout: " + e.Err.Error() }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates the storefront could not be reached.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return "connection: " + e.Err.Error() }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden indicates an HTTP 403, usually bot protection.
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string { return "forbidden: " + e.Err.Error() }
func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound indicates an HTTP 404.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string { return "not_found: " + e.Err.Error() }
func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited indicates an HTTP 429.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string { return "rate_limited: " + e.Err.Error() }
func (e ErrRateLimited) Unwrap() error { return e.Err }

// ErrStatus is any other non-success HTTP status.
type ErrStatus struct {
	Code int
}

func (e ErrStatus) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// ErrDecode indicates a response body that is not the expected shape.
type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string { return "decode: " + e.Err.Error() }
func (e ErrDecode) Unwrap() error { return e.Err }

// classifyError maps a transport error and status code to one of the typed
// errors above. A nil error with a success status yields nil.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode < http.StatusBadRequest {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode >= http.StatusBadRequest {
		wrapped := err
		if wrapped == nil {
			wrapped = ErrStatus{Code: statusCode}
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if err == nil {
			return ErrStatus{Code: statusCode}
		}
		return fmt.Errorf("%w: %w", ErrStatus{Code: statusCode}, err)
	}
	return err
}

// errorTypeLabel returns the metrics/log label for a classified error.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var (
		timeout     ErrTimeout
		conn        ErrConnection
		forbidden   ErrForbidden
		notFound    ErrNotFound
		rateLimited ErrRateLimited
		status      ErrStatus
		decode      ErrDecode
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &conn):
		return "connection"
	case errors.As(err, &forbidden):
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &decode):
		return "decode"
	case errors.As(err, &status):
		return "status"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}
