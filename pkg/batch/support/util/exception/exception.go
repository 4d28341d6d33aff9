// Package exception provides the error type shared by the harvesting pipeline.
// Errors carry the module they came from plus retry/skip flags, so callers can
// tell a run-aborting failure from one that is logged and stepped over.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sentinel errors wrapped by BatchError. Use errors.Is to test for them.
var (
	// ErrInvalidArgument marks a programming error such as a non-positive chunk size.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedPayload marks a query-service response missing required fields.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidRecord marks a record that fails construction-time validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
)

// BatchError is a custom error raised while harvesting.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "reader", "writer", "cursor", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a BatchError with a formatted message.
// Trailing optional arguments are consumed from the end in this order:
// [originalErr error], then [isRetryable bool], then [isSkippable bool].
// Everything left is passed to fmt.Sprintf.
//
//	NewBatchErrorf("writer", "upload of %s failed", key, true, false, err)
//	-> isSkippable: true, isRetryable: false, originalErr: err
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error may be logged and stepped over.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err, or anything it wraps, is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary reports whether err is worth retrying.
// A BatchError's own flag wins; otherwise common transient network failures are detected by message.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// IsSkippable reports whether err was flagged as skippable.
func IsSkippable(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsSkippable()
	}
	return false
}

// IsFatal reports whether err must abort the run.
// Any error that is not an explicitly skippable BatchError is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !IsSkippable(err)
}

// Append aggregates errors the way the writer collects per-group failures.
// nil errors are ignored; the result is nil when nothing non-nil was appended.
func Append(err error, errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return err
	}
	return multierror.Append(err, nonNil...)
}

// ExtractErrorMessage returns BatchError.Message for a BatchError and err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BatchError); ok {
		return be.Message
	}
	return err.Error()
}
