package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a classified collaborator failure.
type ErrorCode string

const (
	ErrTimeout            ErrorCode = "timeout"
	ErrRateLimit          ErrorCode = "rate_limit"
	ErrServiceUnavailable ErrorCode = "service_unavailable"
	ErrContextCancelled   ErrorCode = "context_cancelled"
	ErrBadResponse        ErrorCode = "bad_response"
	ErrServerRejected     ErrorCode = "server_rejected"
	ErrRequestFailed      ErrorCode = "request_failed"
)

// CollaboratorError is a structured error for failures reported by (or while
// talking to) the archive server. The original local state is expected to
// survive a CollaboratorError: callers keep their edits and may retry.
type CollaboratorError struct {
	Code       ErrorCode
	Endpoint   string
	StatusCode int
	RequestID  string
	Message    string
	Cause      error
}

func (e *CollaboratorError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s returned %d: %s", e.Code, e.Endpoint, e.StatusCode, e.Message)
	}
	if e.Endpoint != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// Classify inspects an error and returns a *CollaboratorError with the
// appropriate code. If the error doesn't match any known pattern, it returns
// a CollaboratorError with ErrRequestFailed.
func Classify(err error, endpoint string) *CollaboratorError {
	if err == nil {
		return nil
	}

	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce
	}

	out := &CollaboratorError{
		Endpoint: endpoint,
		Cause:    err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Code = ErrTimeout
		out.Message = "request timed out"
		return out
	}

	if errors.Is(err, context.Canceled) {
		out.Code = ErrContextCancelled
		out.Message = "request cancelled"
		return out
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests") {
		out.Code = ErrRateLimit
		out.Message = msg
		return out
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") || strings.Contains(lower, "503") || strings.Contains(lower, "no such host") {
		out.Code = ErrServiceUnavailable
		out.Message = msg
		return out
	}

	if strings.Contains(lower, "decode") || strings.Contains(lower, "unmarshal") || strings.Contains(lower, "unexpected end of json") {
		out.Code = ErrBadResponse
		out.Message = msg
		return out
	}

	out.Code = ErrRequestFailed
	out.Message = msg
	return out
}

// IsCollaboratorError reports whether err (or anything it wraps) is a CollaboratorError.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
// This function checks the error code using the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		if info, ok := ErrorCodeRegistry[ce.Code]; ok {
			return info.Retryable
		}
		// Default to non-retryable for unknown codes
		return false
	}
	return false
}
