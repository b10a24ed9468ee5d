package utils

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors, for errors.Is branching. The structured types below
// unwrap to these.
var (
	ErrorValidation        = errors.New("validation failed")
	ErrorRecordNotFound    = errors.New("record not found")
	ErrorVersionConflict   = errors.New("version conflict")
	ErrorInvalidTransition = errors.New("invalid status transition")
	ErrorImmutableState    = errors.New("record is immutable")
	ErrorAuthorization     = errors.New("not authorized")
)

// ValidationError reports malformed input: a bad transfer shape, a
// non-positive version, a missing required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrorValidation }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that a resource does not exist or is outside the
// caller's organization. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrorRecordNotFound }

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// VersionConflictError carries everything a caller needs to render a
// conflict diff and offer retry or force-save.
type VersionConflictError struct {
	CurrentVersion      int
	LastModifiedById    int
	LastModifiedByName  string
	LastModifiedByEmail string
	LastModifiedAt      time.Time
	CurrentState        any
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: record is at version %d", e.CurrentVersion)
}
func (e *VersionConflictError) Unwrap() error { return ErrorVersionConflict }

// InvalidTransitionError names both states of a rejected status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
func (e *InvalidTransitionError) Unwrap() error { return ErrorInvalidTransition }

// ImmutableStateError is returned when a reconciled transaction is touched.
type ImmutableStateError struct {
	Message string
}

func (e *ImmutableStateError) Error() string { return e.Message }
func (e *ImmutableStateError) Unwrap() error { return ErrorImmutableState }

// AuthorizationError surfaces a missing or rejected organization identity.
// Membership checks themselves live in the auth layer, not here.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }
func (e *AuthorizationError) Unwrap() error { return ErrorAuthorization }

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
