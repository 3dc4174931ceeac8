package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vango-go/vai-interviews/pkg/gateway/config"
	"github.com/vango-go/vai-interviews/pkg/gateway/mw"
	"github.com/vango-go/vai-interviews/pkg/gateway/principal"
	"github.com/vango-go/vai-interviews/pkg/interview"
)

// SessionsHandler serves the /v1/sessions surface. All lifecycle rules live
// in the service; this layer only decodes, dispatches, and encodes.
type SessionsHandler struct {
	Config  config.Config
	Service *interview.Service
	Owners  principal.OwnerResolver
	Logger  *slog.Logger
}

type createSessionRequest struct {
	Mode    string            `json:"mode"`
	Context interview.Context `json:"context"`
}

func (h SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req createSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	mode, err := interview.ParseMode(req.Mode)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	if h.Owners != nil {
		owner, err := h.Owners.ResolveOwner(r.Context(), req.Context.OwnerID)
		if err != nil {
			writeError(w, reqID, err)
			return
		}
		req.Context.OwnerID = owner
	}

	sess, err := h.Service.Create(r.Context(), mode, req.Context)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	owner := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if owner == "" {
		writeError(w, reqID, interview.NewInvalidRequestErrorWithParam("owner_id is required", "owner_id"))
		return
	}
	sessions, err := h.Service.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Sessions []*interview.Session `json:"sessions"`
	}{Sessions: sessions})
}

func (h SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	sess, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	result, err := h.Service.Begin(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type appendTurnRequest struct {
	AIText    string     `json:"ai_text"`
	UserText  string     `json:"user_text"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (h SessionsHandler) AppendTurn(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req appendTurnRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	if err := h.Service.AppendTurn(r.Context(), r.PathValue("id"), req.AIText, req.UserText, ts); err != nil {
		writeError(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SessionsHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	sess, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Transcript []interview.Turn `json:"transcript"`
		Reconciled []interview.Turn `json:"reconciled_transcript,omitempty"`
	}{Transcript: sess.Transcript, Reconciled: sess.Reconciled})
}

type patchTurnRequest struct {
	UserText string `json:"user_text"`
}

func (h SessionsHandler) PatchTurn(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, reqID, interview.NewInvalidRequestErrorWithParam("turn index must be an integer", "index"))
		return
	}
	var req patchTurnRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	if err := h.Service.PatchTurn(r.Context(), r.PathValue("id"), index, req.UserText); err != nil {
		writeError(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type terminateRequest struct {
	Reason string `json:"reason"`
}

func (h SessionsHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req terminateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	reason, err := interview.ParseTerminationReason(req.Reason)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	if err := h.Service.Terminate(r.Context(), r.PathValue("id"), reason); err != nil {
		writeError(w, reqID, err)
		return
	}
	sess, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h SessionsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	result, err := h.Service.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h SessionsHandler) Evaluation(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	result, err := h.Service.Evaluation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type violationRequest struct {
	ViolationType string `json:"violation_type"`
	Description   string `json:"description"`
}

func (h SessionsHandler) RecordViolation(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var req violationRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, reqID, err)
		return
	}
	v, err := h.Service.RecordViolation(r.Context(), r.PathValue("id"), req.ViolationType, req.Description)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h SessionsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return interview.NewInvalidRequestError("failed to read request body")
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return interview.NewInvalidRequestError("request body is not valid JSON for this operation")
	}
	return nil
}
