package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// FailureKind labels a classified per-record failure in batch summaries.
type FailureKind string

const (
	FailureAuth      FailureKind = "authentication"
	FailureNotFound  FailureKind = "not_found"
	FailureTransient FailureKind = "transient"
)

// AuthenticationError is fatal: the credential was rejected (or absent), so
// continuing the batch is pointless. Never retried.
type AuthenticationError struct {
	StatusCode int
	Reason     string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return "authentication failed: " + e.Reason
}

// NotFoundError is recoverable at record granularity: the identifier does not
// exist upstream. The record is skipped and the batch continues.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %d not found", e.ID)
}

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout, connection failure).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// SchemaError is fatal to a stage: a required column is entirely absent from
// the input table.
type SchemaError struct {
	Stage   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("stage %s: required columns entirely missing: %s", e.Stage, strings.Join(e.Missing, ", "))
}

// IsAuth reports whether err is (or wraps) an AuthenticationError.
func IsAuth(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsSchema reports whether err is (or wraps) a SchemaError.
func IsSchema(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// Classify maps an error to its failure kind for batch summaries. Anything
// not explicitly authentication or not-found is treated as transient, since
// those are the only errors that survive the retry loop.
func Classify(err error) FailureKind {
	switch {
	case IsAuth(err):
		return FailureAuth
	case IsNotFound(err):
		return FailureNotFound
	default:
		return FailureTransient
	}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient network error patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
