// Package domainerrors defines coded errors that services return and the HTTP
// layer translates into status codes and JSON bodies.
//
// Stores return sentinel errors (pkg/platform/sentinel); services wrap or
// translate them into one of the codes below so handlers never inspect
// infrastructure details.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is the machine-readable error identifier written to the "error" field.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeRateLimited  Code = "rate_limited"
	CodeTimeout      Code = "timeout"
	CodeDependency   Code = "dependency_error"
	CodeInternal     Code = "internal_error"
)

// Error is a domain error carrying a code, a client-safe message and an
// optional cause. Detail holds a value the handler may render alongside the
// error (the unchanged record on an invalid_state response, for example).
type Error struct {
	Code    Code
	Message string
	Err     error
	Detail  any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a coded error with an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithDetail attaches a renderable detail to the error and returns it.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

// As extracts the outermost domain error from the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
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
func Is(err error, code Code) bool { return HasCode(err, code) }

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsServerSide reports whether the code describes a failure the client cannot fix.
// Messages for these codes are withheld from response bodies.
func IsServerSide(code Code) bool {
	return ToHTTPStatus(code) >= http.StatusInternalServerError
}
