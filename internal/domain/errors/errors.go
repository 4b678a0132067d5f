// Package errors provides domain-specific errors for the syncbridge offline layer.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common offline-layer conditions.
var (
	// ErrNetworkUnavailable indicates the client is offline and the operation
	// could not be served locally.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrNoCachedData indicates an offline read had no snapshot to fall back to.
	ErrNoCachedData = errors.New("no cached data available offline")

	// ErrRemoteFailure indicates the remote service was reached but returned
	// an error, and no local fallback was possible.
	ErrRemoteFailure = errors.New("remote service failure")

	// ErrQueuedForSync is a sentinel outcome, not a failure: the write was
	// accepted locally and will replay when connectivity returns. Callers must
	// treat it distinctly from both success and failure.
	ErrQueuedForSync = errors.New("queued for sync")

	// ErrReplayExhausted indicates an action exceeded its retry bound during
	// drain and was moved to the dead-letter store.
	ErrReplayExhausted = errors.New("replay attempts exhausted")

	// ErrUnknownActionType indicates no replay handler is registered for an
	// action's type.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrLeaseHeld indicates another process currently holds the drain lease.
	ErrLeaseHeld = errors.New("drain lease held by another owner")

	ErrActionNotFound = errors.New("pending action not found")
	ErrKeyRequired    = errors.New("cache key required")
	ErrTypeRequired   = errors.New("action type required")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeNetwork    ErrorCode = "NETWORK"
	CodeRemote     ErrorCode = "REMOTE"
	CodeStorage    ErrorCode = "STORAGE"
	CodeValidation ErrorCode = "VALIDATION"
	CodeDrain      ErrorCode = "DRAIN"
)

// SyncError wraps errors with additional context for debugging and handling.
type SyncError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NewError creates a new SyncError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *SyncError {
	return &SyncError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the
// error. This allows for method chaining when adding multiple context values.
func (e *SyncError) WithContext(key string, value interface{}) *SyncError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// permanentError marks a failure that retrying cannot fix, such as a
// rejected or malformed request. The drainer dead-letters these immediately
// instead of burning retry attempts.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string {
	return p.err.Error()
}

func (p *permanentError) Unwrap() error {
	return p.err
}

// Permanent wraps err as a permanent failure. Wrapping nil returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err is marked permanent anywhere in its chain.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Is reports whether err matches target using errors.Is semantics.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target
// to that error value.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
