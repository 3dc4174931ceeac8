package handlers

import (
	"net/http"

	"github.com/vango-go/vai-interviews/pkg/gateway/mw"
	"github.com/vango-go/vai-interviews/pkg/interview"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	writeErrorJSON(w, reqID, &interview.Error{
		Kind:      interview.ErrNotFound,
		Message:   "not found",
		RequestID: reqID,
	}, http.StatusNotFound)
}
