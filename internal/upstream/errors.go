package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// StatusError is returned for any non-2xx answer from the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: API returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Message is the text shown to users on the error view.
func (e *StatusError) Message() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "You are not allowed to access this data. Sign in again and retry."
	case e.StatusCode == http.StatusNotFound:
		return "The requested data was not found."
	case e.StatusCode >= 500:
		return fmt.Sprintf("The server failed to answer (status %d). Try again in a moment.", e.StatusCode)
	default:
		return fmt.Sprintf("The request was rejected (status %d).", e.StatusCode)
	}
}

// IsRetryable reports whether err is transient: network failures, timeouts, 429 and 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// UserMessage turns any fetch error into a human-readable sentence.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return "The server took too long to answer. Try again in a moment."
	}
	if IsRetryable(err) {
		return "The server could not be reached. Check the connection and try again."
	}
	return "An unknown error occurred."
}

// HTTPStatus is the status a page answers with when err stopped it from loading.
func HTTPStatus(err error) int {
	var se *StatusError
	switch {
	case errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden || se.StatusCode == http.StatusNotFound):
		return se.StatusCode
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
