// Package apierr defines the coded errors returned to GraphQL clients.
package apierr

import (
	"errors"
	"fmt"

	"github.com/UkralStul/content-graph-service/internal/storage"
)

// Code is a machine-readable error code placed in extensions.code.
type Code string

const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidationFailed Code = "GRAPHQL_VALIDATION_FAILED"
	CodeInternal         Code = "INTERNAL_SERVER_ERROR"
)

// Error is a coded error with a client-facing message and an optional
// cause that is logged but never serialized.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap creates an Error that keeps cause for logging and unwrapping.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// Error returns the client-facing message. graphql-go copies it verbatim
// into the response, so the cause is left out.
func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// Extensions implements gqlerrors.ExtendedError.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.code)}
}

// Detail renders code, message and cause for logs.
func (e *Error) Detail() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

var (
	ErrUnauthenticated = New(CodeUnauthenticated, "Access denied! You need to be authorized to perform this action!")
	ErrForbidden       = New(CodeForbidden, "Access denied!")
)

// FromStorage maps storage sentinel errors onto coded errors. Anything it
// does not recognize becomes an internal error.
func FromStorage(err error) *Error {
	var apiErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, storage.ErrNotFound):
		return Wrap(CodeNotFound, "Entity not found", err)
	case errors.Is(err, storage.ErrInvalidKeyword),
		errors.Is(err, storage.ErrSameKeyword),
		errors.Is(err, storage.ErrInvalidStatus):
		return Wrap(CodeValidationFailed, err.Error(), err)
	default:
		return Wrap(CodeInternal, "Unexpected error", err)
	}
}
