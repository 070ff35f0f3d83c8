package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		endpoint string
		wantCode ErrorCode
	}{
		{"nil error", nil, "search/", ""},
		{"deadline exceeded", context.DeadlineExceeded, "search/", ErrTimeout},
		{"cancelled", context.Canceled, "search/", ErrContextCancelled},
		{"rate limit text", errors.New("429 too many requests"), "search/", ErrRateLimit},
		{"connection refused", errors.New("dial tcp: connection refused"), "episode/12", ErrServiceUnavailable},
		{"decode failure", errors.New("decode archive response: unexpected EOF"), "search/", ErrBadResponse},
		{"unclassified", errors.New("boom"), "highlights/", ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err, tt.endpoint)
			if tt.err == nil {
				if ce != nil {
					t.Fatalf("Classify(nil) = %v, want nil", ce)
				}
				return
			}
			if ce.Code != tt.wantCode {
				t.Errorf("Classify() code = %q, want %q", ce.Code, tt.wantCode)
			}
			if ce.Endpoint != tt.endpoint {
				t.Errorf("Classify() endpoint = %q, want %q", ce.Endpoint, tt.endpoint)
			}
			if !errors.Is(ce, tt.err) {
				t.Errorf("Classify() does not wrap the original error")
			}
		})
	}
}

func TestClassifyPreservesExisting(t *testing.T) {
	orig := &CollaboratorError{Code: ErrServerRejected, Endpoint: "highlights/", Message: "missing data"}
	wrapped := fmt.Errorf("save quotes: %w", orig)

	got := Classify(wrapped, "other/")
	if got != orig {
		t.Errorf("Classify() = %v, want the original CollaboratorError", got)
	}
}

func TestCollaboratorErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *CollaboratorError
		want string
	}{
		{
			"with status code",
			&CollaboratorError{Code: ErrServerRejected, Endpoint: "highlights/", StatusCode: 400, Message: "missing data"},
			"server_rejected: highlights/ returned 400: missing data",
		},
		{
			"without status code",
			&CollaboratorError{Code: ErrServiceUnavailable, Endpoint: "search/", Message: "connection refused"},
			"service_unavailable: search/: connection refused",
		},
		{
			"no endpoint",
			&CollaboratorError{Code: ErrRequestFailed, Message: "boom"},
			"request_failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsErrorRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout is retryable", &CollaboratorError{Code: ErrTimeout}, true},
		{"rate limit is retryable", &CollaboratorError{Code: ErrRateLimit}, true},
		{"unavailable is retryable", &CollaboratorError{Code: ErrServiceUnavailable}, true},
		{"rejected is not", &CollaboratorError{Code: ErrServerRejected}, false},
		{"wrapped retryable", fmt.Errorf("fetch: %w", &CollaboratorError{Code: ErrTimeout}), true},
		{"plain error", errors.New("boom"), false},
		{"unknown code", &CollaboratorError{Code: ErrorCode("mystery")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsErrorRetryable(tt.err); got != tt.want {
				t.Errorf("IsErrorRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
