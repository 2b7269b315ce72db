package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error is a non-2xx backend response
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API %d: %s", e.Status, e.Message)
}

// ErrorKind is the user-facing failure category for a failed send
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindTimeout
	KindNetwork
	KindGateway
	KindAuth
)

// Classify maps an error onto the user-facing taxonomy. Classification is
// keyword matching over the lowered error text plus the HTTP status when the
// error is an *Error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindGeneric
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401:
			return KindAuth
		case 502, 503, 504:
			return KindGateway
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "aborted"):
		return KindTimeout
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "unreachable"):
		return KindNetwork
	case strings.Contains(msg, "authentication"),
		strings.Contains(msg, "401"):
		return KindAuth
	default:
		return KindGeneric
	}
}

// UserMessage converts an error into the message surfaced in the error
// banner. Only the generic kind leaks the raw error text.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindTimeout:
		return "Request timed out. The operation may still be running in the background."
	case KindNetwork:
		return "Cannot reach the backend. Check that it is running and try again."
	case KindGateway:
		return "The backend is temporarily unavailable. Please try again in a moment."
	case KindAuth:
		return "Authentication failed. Please log in again."
	default:
		return err.Error()
	}
}

// isRetryable reports whether a failed attempt may be retried: network-level
// failures with no response, or upstream/gateway statuses. Everything else
// propagates immediately.
func isRetryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 502, 503, 504:
			return true
		}
		return false
	}
	// No HTTP response at all (dial failure, reset, timeout)
	return true
}
