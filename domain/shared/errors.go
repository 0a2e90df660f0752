/*
Package shared holds the building blocks every subdomain depends on:
the repository error taxonomy, the domain event envelope, the
specification DSL and the entity contracts.

Error design:
1. Sentinel errors support errors.Is() checks without string matching.
2. RepositoryError captures the stack at construction but formats it
   lazily, only when a log line actually needs it.
3. Domain errors carry no transport concepts (no HTTP status codes).
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel errors. Callers distinguish failure kinds with errors.Is().
var (
	// ErrNotFound means the requested entity does not exist within the
	// caller's tenant scope.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate maps a unique-constraint violation (e.g. a colliding
	// order number or email).
	ErrDuplicate = errors.New("duplicate")

	// ErrConflict covers concurrent-modification and state conflicts that
	// are not unique-key violations.
	ErrConflict = errors.New("conflict")

	// ErrBusinessRule marks an invariant breach outside plain CRUD, such
	// as an illegal status transition or inconsistent fee totals.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrStorage wraps any other storage-layer failure.
	ErrStorage = errors.New("storage error")
)

// RepositoryError is the structured error returned by the persistence
// layer. It wraps a sentinel for errors.Is() and carries the entity name
// plus the stack of the construction site.
type RepositoryError struct {
	// Err is the underlying sentinel, used by errors.Is().
	Err error

	// Entity names the aggregate the error refers to ("payment_order").
	Entity string

	// Message is the human readable description.
	Message string

	// Cause is the storage-driver error, if any.
	Cause error

	stack []uintptr
}

func (e *RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the sentinel so errors.Is(err, shared.ErrNotFound) works.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Stack formats the captured stack on demand.
func (e *RepositoryError) Stack() []string {
	return FormatStack(e.stack)
}

// BusinessRuleError reports a violated domain invariant. It wraps
// ErrBusinessRule and names the rule so callers can log or translate it.
type BusinessRuleError struct {
	Rule    string
	Message string
	stack   []uintptr
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func (e *BusinessRuleError) Unwrap() error {
	return ErrBusinessRule
}

func (e *BusinessRuleError) Stack() []string {
	return FormatStack(e.stack)
}

// CaptureStack records the current call stack. skip is the number of
// frames to drop (usually 3: Callers, CaptureStack, the constructor).
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack renders stack frames, filtering runtime internals and
// keeping at most 10 frames.
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

// NewNotFoundError reports that an entity does not exist.
func NewNotFoundError(entity string) error {
	return &RepositoryError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

// NewDuplicateError reports a unique-constraint violation.
func NewDuplicateError(entity string, cause error) error {
	return &RepositoryError{
		Err:     ErrDuplicate,
		Entity:  entity,
		Message: entity + " already exists",
		Cause:   cause,
		stack:   CaptureStack(3),
	}
}

// NewConflictError reports a concurrent-modification or state conflict.
func NewConflictError(entity, message string) error {
	return &RepositoryError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewStorageError wraps an unclassified storage-driver failure.
func NewStorageError(entity string, cause error) error {
	return &RepositoryError{
		Err:     ErrStorage,
		Entity:  entity,
		Message: "storage operation failed on " + entity,
		Cause:   cause,
		stack:   CaptureStack(3),
	}
}

// NewBusinessRuleViolation reports a violated domain invariant.
func NewBusinessRuleViolation(rule, message string) error {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// Stacker is implemented by errors that carry a formatted stack.
type Stacker interface {
	Stack() []string
}
