// Package errors carries a machine-readable Code alongside the usual Go
// error chain. The HTTP layer renders codes through MetadataFor.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodePayment      Code = "PAYMENT_FAILED"
	CodeUpstream     Code = "UPSTREAM_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Metadata is how a code is rendered over HTTP. Client errors expose the
// error's own message; server errors always show PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

func clientError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ExposeMessage: true, DetailsAllowed: details}
}

func serverError(status int, public string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, Retryable: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   clientError(http.StatusBadRequest, "Validation failed", true),
	CodeUnauthorized: clientError(http.StatusUnauthorized, "Authentication required", false),
	CodeForbidden:    clientError(http.StatusForbidden, "Forbidden", false),
	CodeNotFound:     clientError(http.StatusNotFound, "Not found", false),
	CodeConflict:     clientError(http.StatusConflict, "Conflict", true),
	CodeIdempotency:  clientError(http.StatusConflict, "Idempotency key reused", true),
	CodeRateLimit:    clientError(http.StatusTooManyRequests, "Rate limit exceeded", false),
	CodePayment:      clientError(http.StatusPaymentRequired, "Payment failed", false),
	CodeUpstream:     serverError(http.StatusBadGateway, "Server error"),
	CodeDependency:   serverError(http.StatusServiceUnavailable, "Service unavailable"),
	CodeInternal:     serverError(http.StatusInternalServerError, "Server error"),
}

// MetadataFor treats unknown codes as CodeInternal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err; a nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code is CodeInternal on a nil receiver.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered under "details" and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
