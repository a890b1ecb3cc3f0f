package engine

import (
	"errors"
	"fmt"
)

// EngineError is a diagnostic carried on lifecycle events. The engine
// never throws faults that halt the loop: a failure in one request's
// pipeline is reported to listeners and processing continues.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RequestID identifies the affected request, when one exists.
	RequestID string

	// Detail contains additional context.
	Detail map[string]string
}

// ErrorCode categorizes engine diagnostics.
type ErrorCode string

const (
	// ErrCodeTriggerSpec marks a malformed trigger specification,
	// reported once at bind time; the spec is inert.
	ErrCodeTriggerSpec ErrorCode = "TRIGGER_SPEC"

	// ErrCodeRequestBuild marks a build-level failure (missing target,
	// unresolvable include); the request was never sent.
	ErrCodeRequestBuild ErrorCode = "REQUEST_BUILD"

	// ErrCodeSwap marks a per-fragment swap skip (selector miss,
	// target gone); other fragments in the response still applied.
	ErrCodeSwap ErrorCode = "SWAP_FRAGMENT"

	// ErrCodeHistory marks a history bookkeeping failure.
	ErrCodeHistory ErrorCode = "HISTORY"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsEngineError unwraps an EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
