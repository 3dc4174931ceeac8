package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vango-go/vai-interviews/pkg/gateway/apierror"
	"github.com/vango-go/vai-interviews/pkg/interview"
)

func writeError(w http.ResponseWriter, reqID string, err error) {
	ivErr, status := apierror.FromError(err, reqID)
	writeErrorJSON(w, reqID, ivErr, status)
}

func writeErrorJSON(w http.ResponseWriter, reqID string, ivErr *interview.Error, status int) {
	if ivErr != nil && ivErr.RequestID == "" {
		ivErr.RequestID = reqID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apierror.Envelope{Error: ivErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
