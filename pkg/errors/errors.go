// Package errors provides common domain error types for the aircheck CLI.
//
// This package defines sentinel errors for domain conditions like a malformed
// transcript timestamp or a quote failing validation, usable across all
// packages. Using typed errors enables consistent error handling patterns with
// errors.Is() checks.
//
// Usage:
//
//	import acerrors "github.com/otherjamesbrown/aircheck-cli/pkg/errors"
//
//	// Return a domain error
//	return "", fmt.Errorf("%w: %q", acerrors.ErrMalformedTimestamp, raw)
//
//	// Check for domain errors
//	if acerrors.IsMalformedTimestamp(err) {
//	    // handle the bad timestamp
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrMalformedTimestamp indicates a transcript offset that is not a
	// parseable hh:mm:ss timestamp.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrMissingRequiredField indicates a quote is missing text, title, or
	// speaker and cannot be persisted.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrStaleResponse indicates a response that arrived after a newer
	// request was already issued. Callers discard it without surfacing
	// anything to the user.
	ErrStaleResponse = errors.New("stale response")

	// ErrOperationInFlight indicates an operation was rejected because an
	// equivalent one is already running.
	ErrOperationInFlight = errors.New("operation already in flight")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")
)

// IsMalformedTimestamp reports whether any error in err's chain is ErrMalformedTimestamp.
func IsMalformedTimestamp(err error) bool {
	return errors.Is(err, ErrMalformedTimestamp)
}

// IsMissingRequiredField reports whether any error in err's chain is ErrMissingRequiredField.
func IsMissingRequiredField(err error) bool {
	return errors.Is(err, ErrMissingRequiredField)
}

// IsStaleResponse reports whether any error in err's chain is ErrStaleResponse.
func IsStaleResponse(err error) bool {
	return errors.Is(err, ErrStaleResponse)
}

// IsOperationInFlight reports whether any error in err's chain is ErrOperationInFlight.
func IsOperationInFlight(err error) bool {
	return errors.Is(err, ErrOperationInFlight)
}

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
