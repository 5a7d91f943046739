package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RuntimeError is a fatal error raised while bootstrapping or executing
// an event.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details carries the identifiers involved (type, term, entity, ...).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownIdentifier indicates a (type, table, term) lookup miss.
	ErrCodeUnknownIdentifier RuntimeErrorCode = "UNKNOWN_IDENTIFIER"

	// ErrCodeUnboundHost indicates a foreign call the host does not bind.
	ErrCodeUnboundHost RuntimeErrorCode = "UNBOUND_HOST_CAPABILITY"

	// ErrCodeCapabilityMisuse indicates a second capability token was
	// requested while one is live. This is a programming error.
	ErrCodeCapabilityMisuse RuntimeErrorCode = "CAPABILITY_MISUSE"

	// ErrCodeAlgorithmFailed indicates an algorithm body raised an error.
	ErrCodeAlgorithmFailed RuntimeErrorCode = "ALGORITHM_FAILED"

	// ErrCodeInvalidSchedule indicates an event scheduled in the past.
	ErrCodeInvalidSchedule RuntimeErrorCode = "INVALID_SCHEDULE"

	// ErrCodeUnknownEntity indicates an event targets a missing entity.
	ErrCodeUnknownEntity RuntimeErrorCode = "UNKNOWN_ENTITY"

	// ErrCodeInvalidValue indicates a value that cannot cross the runtime
	// boundary (floats, functions, non-string keys).
	ErrCodeInvalidValue RuntimeErrorCode = "INVALID_VALUE"

	// ErrCodeQuotaExceeded indicates the run exceeded its event budget.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + e.Details[k]
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first RuntimeError in err's chain, or ""
// if there is none.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnboundHost returns true if err reports an unbound foreign call.
func IsUnboundHost(err error) bool {
	return CodeOf(err) == ErrCodeUnboundHost
}

// IsCapabilityMisuse returns true if err reports a duplicate token.
func IsCapabilityMisuse(err error) bool {
	return CodeOf(err) == ErrCodeCapabilityMisuse
}

// IsQuotaError returns true if err reports an exhausted event budget.
func IsQuotaError(err error) bool {
	return CodeOf(err) == ErrCodeQuotaExceeded
}

// NewUnboundHostError creates the error a host returns for a foreign call
// it cannot answer.
func NewUnboundHostError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnboundHost,
		Message: "no host binding for foreign call",
		Details: map[string]string{"func": name},
	}
}

func newUnknownEntityError(id EntityID) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownEntity,
		Message: "no such entity",
		Details: map[string]string{"entity": fmt.Sprintf("%d", id)},
	}
}

func newQuotaError(events, limit int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max events (%d > %d)", events, limit),
		Details: map[string]string{
			"events":     fmt.Sprintf("%d", events),
			"max_events": fmt.Sprintf("%d", limit),
		},
	}
}
