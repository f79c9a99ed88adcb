package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kinds of domain failure. Every domain error wraps exactly one of them.
var (
	ErrValidation = stderrors.New("validation failed")
	ErrNotFound   = stderrors.New("not found")
	ErrForbidden  = stderrors.New("forbidden")
	ErrDependency = stderrors.New("dependency unavailable")
	ErrTimeout    = stderrors.New("timed out")
)

// DomainError carries a Kind for classification and a human readable message.
// Cause holds the underlying failure for dependency and timeout errors.
type DomainError struct {
	Kind    error
	Message string
	Field   string
	Cause   error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Retryable reports whether the caller may safely retry.
func (e *DomainError) Retryable() bool {
	return e.Kind == ErrTimeout || e.Kind == ErrDependency
}

// Validation reports the first unmet input rule.
func Validation(field, message string) error {
	return &DomainError{Kind: ErrValidation, Field: field, Message: message}
}

// NotFoundf reports an unknown identifier.
func NotFoundf(format string, args ...any) error {
	return &DomainError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf reports a role or ownership violation.
func Forbiddenf(format string, args ...any) error {
	return &DomainError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps a collaborator failure.
func Dependency(op string, cause error) error {
	return &DomainError{Kind: ErrDependency, Message: op, Cause: cause}
}

// Timeout wraps a deadline that expired while waiting on a collaborator.
func Timeout(op string, cause error) error {
	return &DomainError{Kind: ErrTimeout, Message: op, Cause: cause}
}

// Classify turns a raw store error into a Dependency or Timeout error. Domain
// errors pass through untouched and nil stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if stderrors.As(err, &domainErr) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Timeout(op, err)
	}
	return Dependency(op, err)
}
