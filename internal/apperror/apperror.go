// Package apperror defines the error taxonomy shared across the orchestrator.
//
// The three run-fatal kinds (launch, debug attach, execution timeout) are
// sentinel errors wrapped in an AppError carrying a human-readable message.
// Callers classify with errors.Is and extract the message with errors.As.
// A nonzero exit code from the spawned process is not an error at this
// layer — it is a normal field of the execution result.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLaunch means the external CLI could not be resolved or spawned.
	ErrLaunch = errors.New("launch failed")
	// ErrDebugAttach means the debugger did not attach within the grace period.
	ErrDebugAttach = errors.New("debug attach failed")
	// ErrExecutionTimeout means Await exceeded its bound; the process
	// disposition is unknown and it may still be running.
	ErrExecutionTimeout = errors.New("execution timed out")

	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// AppError pairs a sentinel error with a human-readable message.
type AppError struct {
	Err     error  // sentinel for errors.Is classification
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// LaunchFailed reports that the executable at path could not be started.
func LaunchFailed(path string, cause error) *AppError {
	return &AppError{
		Err:     ErrLaunch,
		Message: fmt.Sprintf("cannot launch %q: %v", path, cause),
	}
}

// AttachTimedOut reports that no debugger session attached within grace.
func AttachTimedOut(grace time.Duration) *AppError {
	return &AppError{
		Err:     ErrDebugAttach,
		Message: fmt.Sprintf("debugger did not attach within %s", grace),
	}
}

// AttachFailed reports a debug session failure after attach was attempted.
func AttachFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrDebugAttach,
		Message: fmt.Sprintf("debug session failed: %v", cause),
	}
}

// ExecutionTimedOut reports that an Await call exceeded timeout.
func ExecutionTimedOut(timeout time.Duration) *AppError {
	return &AppError{
		Err:     ErrExecutionTimeout,
		Message: fmt.Sprintf("no result within %s; the process may still be running", timeout),
	}
}

// NotFound reports a missing stored resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports an invalid field in a request or configuration.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}
