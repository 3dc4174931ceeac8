package interview

import (
	"errors"
	"fmt"
)

// Error is the canonical error for the interview engine. Handlers map it to
// an HTTP status by Kind; everything below the gateway returns *Error.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Kind, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// ErrorKind categorizes errors.
type ErrorKind string

const (
	ErrInvalidRequest    ErrorKind = "invalid_request_error"
	ErrAuthentication    ErrorKind = "authentication_error"
	ErrNotFound          ErrorKind = "not_found_error"
	ErrSessionClosed     ErrorKind = "session_closed"
	ErrAlreadyTerminated ErrorKind = "already_terminated"
	ErrNotTerminated     ErrorKind = "not_terminated"
	ErrAlreadyEvaluated  ErrorKind = "already_evaluated"
	ErrIndexOutOfRange   ErrorKind = "index_out_of_range"
	ErrMalformedOutput   ErrorKind = "malformed_model_output"
	ErrSchema            ErrorKind = "evaluation_schema_error"
	ErrUpstream          ErrorKind = "upstream_unavailable"
	ErrTemplateNotFound  ErrorKind = "template_not_found"
	ErrAPI               ErrorKind = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: message}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: message, Param: param}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{Kind: ErrAuthentication, Message: message}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// NewSessionClosedError reports an append against a terminated or completed session.
func NewSessionClosedError(message string) *Error {
	return &Error{Kind: ErrSessionClosed, Message: message}
}

// NewAlreadyTerminatedError reports a duplicate termination.
func NewAlreadyTerminatedError(message string) *Error {
	return &Error{Kind: ErrAlreadyTerminated, Message: message}
}

// NewNotTerminatedError reports completion without a prior termination marker.
func NewNotTerminatedError(message string) *Error {
	return &Error{Kind: ErrNotTerminated, Message: message}
}

// NewAlreadyEvaluatedError reports a duplicate evaluation.
func NewAlreadyEvaluatedError(message string) *Error {
	return &Error{Kind: ErrAlreadyEvaluated, Message: message}
}

// NewIndexOutOfRangeError reports a turn edit outside the reconciled transcript.
func NewIndexOutOfRangeError(message string) *Error {
	return &Error{Kind: ErrIndexOutOfRange, Message: message}
}

// NewMalformedOutputError reports unusable model output.
func NewMalformedOutputError(message string, cause error) *Error {
	return &Error{Kind: ErrMalformedOutput, Message: message, cause: cause}
}

// NewSchemaError reports model output that fails schema validation after normalization.
func NewSchemaError(message string) *Error {
	return &Error{Kind: ErrSchema, Message: message}
}

// NewUpstreamError reports a failed call to an external provider.
func NewUpstreamError(message string, cause error) *Error {
	return &Error{Kind: ErrUpstream, Message: message, cause: cause}
}

// NewTemplateNotFoundError reports a missing template registration.
func NewTemplateNotFoundError(message string) *Error {
	return &Error{Kind: ErrTemplateNotFound, Message: message}
}

// NewAPIError creates a generic internal error.
func NewAPIError(message string) *Error {
	return &Error{Kind: ErrAPI, Message: message}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsRetryable reports whether the caller may safely retry the operation.
func (e *Error) IsRetryable() bool {
	return e.Kind == ErrUpstream
}
