// Package domainerrors defines the coded error taxonomy shared by services,
// stores and transports.
//
// Services return *Error values so transports can map them to responses
// without string matching. Stores return sentinel errors (pkg/platform/sentinel)
// which services translate into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"maps"
)

// Code identifies which rule an error violated.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeNotFound           Code = "not_found"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvalidTransition  Code = "invalid_transition"
	CodeAlreadyDeleted     Code = "already_deleted"
	CodeNotDeleted         Code = "not_deleted"
	CodeConflict           Code = "conflict"
	CodeUnprocessable      Code = "unprocessable"
	CodeInvariantViolation Code = "invariant_violation"
	CodePersistence        Code = "persistence_failure"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
)

// Error is a coded domain error. Details carry structured context (which
// rule, which id) for transports that build user-facing messages.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a coded error that keeps err in the chain.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of e with an extra detail attached.
func (e *Error) With(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	maps.Copy(details, e.Details)
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DetailsOf returns the details of the outermost *Error in err's chain.
func DetailsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}
