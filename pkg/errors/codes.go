package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Request exceeded time limit",
		SuggestedAction: "Increase the timeout: aircheck config set timeout 1m",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Archive server rate limit exceeded",
		SuggestedAction: "Wait a moment and retry the command",
	},
	ErrServiceUnavailable: {
		Code:            ErrServiceUnavailable,
		Retryable:       true,
		Description:     "Archive server unreachable or unavailable",
		SuggestedAction: "Check the server address: aircheck config show",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Request cancelled by user or system",
		SuggestedAction: "Re-run the command if the cancellation was not intentional",
	},
	ErrBadResponse: {
		Code:            ErrBadResponse,
		Retryable:       false,
		Description:     "Archive server returned a malformed response",
		SuggestedAction: "Re-run with --debug to inspect the raw response",
	},
	ErrServerRejected: {
		Code:            ErrServerRejected,
		Retryable:       false,
		Description:     "Archive server rejected the request",
		SuggestedAction: "Inspect the reported error detail and correct the request",
	},
	ErrRequestFailed: {
		Code:            ErrRequestFailed,
		Retryable:       false,
		Description:     "Unclassified request failure",
		SuggestedAction: "Re-run with --debug for more details",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug for more details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
