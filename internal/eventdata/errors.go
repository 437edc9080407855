package eventdata

import (
	"context"
	"errors"
	"fmt"
)

// InvalidArgumentError signals a request parameter the engine cannot work
// with (missing event or property name, bad page bounds). Surfaced as a
// client error; no backend call is made.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// InvalidFilterError signals a standard filter referencing a column outside
// the recognized allow-list. Kept distinct from InvalidArgumentError because
// it guards the SQL assembly path against column injection.
type InvalidFilterError struct {
	Column string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("filter references unknown column %q", e.Column)
}

// BackendTimeoutError wraps a backend call that exceeded its deadline.
// The engine never retries; repeated aggregation scans are expensive and
// retry policy belongs to the caller.
type BackendTimeoutError struct {
	Operation string
	Err       error
}

func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("backend timeout during %s: %v", e.Operation, e.Err)
}

func (e *BackendTimeoutError) Unwrap() error { return e.Err }

// BackendUnavailableError wraps a backend call that failed outright.
type BackendUnavailableError struct {
	Operation string
	Err       error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable during %s: %v", e.Operation, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// UnsupportedBackendError signals a configured backend kind with no engine
// implementation. This is a deployment bug caught at startup; it must never
// reach request time.
type UnsupportedBackendError struct {
	Kind BackendKind
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("no engine implementation for backend %q", e.Kind)
}

// classifyBackendErr maps a raw backend error onto the engine taxonomy.
// Context cancellation passes through untouched so callers can tell a
// navigated-away client from a sick backend.
func classifyBackendErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendTimeoutError{Operation: operation, Err: err}
	}
	return &BackendUnavailableError{Operation: operation, Err: err}
}
