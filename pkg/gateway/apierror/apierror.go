// Package apierror maps canonical interview errors to HTTP responses. The
// mapping lives here so handlers never hand-pick status codes.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

type Envelope struct {
	Error *interview.Error `json:"error"`
}

func FromError(err error, requestID string) (*interview.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &interview.Error{
			Kind:      interview.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &interview.Error{
			Kind:      interview.ErrAPI,
			Message:   "request cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var ivErr *interview.Error
	if errors.As(err, &ivErr) && ivErr != nil {
		out := *ivErr
		out.RequestID = requestID
		return &out, StatusFromKind(ivErr.Kind)
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	return &interview.Error{
		Kind:      interview.ErrAPI,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func StatusFromKind(k interview.ErrorKind) int {
	switch k {
	case interview.ErrInvalidRequest, interview.ErrIndexOutOfRange:
		return http.StatusBadRequest
	case interview.ErrAuthentication:
		return http.StatusUnauthorized
	case interview.ErrNotFound:
		return http.StatusNotFound
	case interview.ErrSessionClosed,
		interview.ErrAlreadyTerminated,
		interview.ErrNotTerminated,
		interview.ErrAlreadyEvaluated:
		return http.StatusConflict
	case interview.ErrMalformedOutput,
		interview.ErrSchema,
		interview.ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
