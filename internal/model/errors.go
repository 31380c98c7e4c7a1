package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrLockTimeout is returned when a numbering partition lock could not be
	// acquired in time. The caller decides whether to retry.
	ErrLockTimeout = errors.New("lock wait timeout")

	// ErrSerialization is returned when the database aborts a transaction
	// because of a concurrent update
	ErrSerialization = errors.New("serialization failure")
)

// ValidationError represents invalid input on a draft
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// PreconditionError reports an unmet precondition of a lifecycle operation.
// Nothing has been persisted when it is returned.
type PreconditionError struct {
	Operation string
	Field     string
	Rule      string
	Message   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition %s failed on %s: %s", e.Operation, e.Rule, e.Field, e.Message)
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, field, rule, message string) *PreconditionError {
	return &PreconditionError{
		Operation: operation,
		Field:     field,
		Rule:      rule,
		Message:   message,
	}
}

// EncodeError is returned when an export format cannot be produced because
// the document lacks data the target schema requires
type EncodeError struct {
	Format  string
	Field   string
	Message string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode [%s] %s: %s", e.Format, e.Field, e.Message)
}

// NewEncodeError creates a new encode error
func NewEncodeError(format, field, message string) *EncodeError {
	return &EncodeError{
		Format:  format,
		Field:   field,
		Message: message,
	}
}

// ConflictError reports a concurrency conflict on a numbering partition or
// document row. The core never retries on its own.
type ConflictError struct {
	Key     string
	Message string
	Cause   error
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conflict on %s: %s (%v)", e.Key, e.Message, e.Cause)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Key, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// NewConflictError creates a new conflict error
func NewConflictError(key, message string, cause error) *ConflictError {
	return &ConflictError{
		Key:     key,
		Message: message,
		Cause:   cause,
	}
}

// NotFoundError reports a missing record
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ImmutableError is returned for any write a document's status forbids
type ImmutableError struct {
	ID        string
	Status    Status
	Operation string
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("document %s is %s: %s not allowed", e.ID, e.Status, e.Operation)
}

// NewImmutableError creates a new immutable-document error
func NewImmutableError(id string, status Status, operation string) *ImmutableError {
	return &ImmutableError{ID: id, Status: status, Operation: operation}
}
