package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vai-interviews/pkg/gateway/config"
	"github.com/vango-go/vai-interviews/pkg/gateway/mw"
	"github.com/vango-go/vai-interviews/pkg/interview"
)

// LiveHandler handles /v1/sessions/{id}/live websocket turn feeds. Clients
// stream transcript turns as they happen instead of POSTing each one; every
// accepted turn is acked with its sequence number within the connection.
type LiveHandler struct {
	Config  config.Config
	Service *interview.Service
	Logger  *slog.Logger
}

type liveClientFrame struct {
	Type      string     `json:"type"`
	AIText    string     `json:"ai_text,omitempty"`
	UserText  string     `json:"user_text,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type liveServerFrame struct {
	Type    string `json:"type"`
	Seq     int    `json:"seq,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	sessionID := r.PathValue("id")

	// The session must exist and be open before the upgrade; a rejected
	// upgrade is a clean HTTP error, a dropped socket is not.
	sess, err := h.Service.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, reqID, err)
		return
	}
	if sess.Terminated() || sess.Status == interview.StatusCompleted {
		writeError(w, reqID, interview.NewSessionClosedError("session is closed to new turns"))
		return
	}
	if !h.originAllowed(r) {
		writeError(w, reqID, interview.NewAuthenticationError("origin is not allowed"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.LiveMaxMessageBytes > 0 {
		conn.SetReadLimit(h.Config.LiveMaxMessageBytes)
	}

	stop := make(chan struct{})
	defer close(stop)
	go h.pingLoop(conn, stop)

	seq := 0
	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			h.writeFrame(conn, liveServerFrame{Type: "error", Kind: string(interview.ErrInvalidRequest), Message: "frames must be JSON text"})
			continue
		}

		var msg liveClientFrame
		if err := json.Unmarshal(frame, &msg); err != nil {
			h.writeFrame(conn, liveServerFrame{Type: "error", Kind: string(interview.ErrInvalidRequest), Message: "invalid frame"})
			continue
		}

		switch strings.TrimSpace(msg.Type) {
		case "turn":
			var ts time.Time
			if msg.Timestamp != nil {
				ts = *msg.Timestamp
			}
			if err := h.Service.AppendTurn(r.Context(), sessionID, msg.AIText, msg.UserText, ts); err != nil {
				h.handleAppendError(conn, sessionID, err)
				if interview.IsKind(err, interview.ErrSessionClosed) {
					return
				}
				continue
			}
			seq++
			h.writeFrame(conn, liveServerFrame{Type: "turn_ack", Seq: seq})

		case "terminate":
			reason, err := interview.ParseTerminationReason(msg.Reason)
			if err != nil {
				h.writeFrame(conn, liveServerFrame{Type: "error", Kind: string(interview.ErrInvalidRequest), Message: "unknown termination reason"})
				continue
			}
			if err := h.Service.Terminate(r.Context(), sessionID, reason); err != nil {
				h.handleAppendError(conn, sessionID, err)
				continue
			}
			h.writeFrame(conn, liveServerFrame{Type: "terminated"})
			h.closeWith(conn, websocket.CloseNormalClosure, "session terminated")
			return

		default:
			h.writeFrame(conn, liveServerFrame{Type: "error", Kind: string(interview.ErrInvalidRequest), Message: "unknown frame type"})
		}
	}
}

func (h LiveHandler) handleAppendError(conn *websocket.Conn, sessionID string, err error) {
	kind := interview.ErrAPI
	var ivErr *interview.Error
	if e, ok := err.(*interview.Error); ok {
		ivErr = e
		kind = e.Kind
	}
	msg := "internal error"
	if ivErr != nil {
		msg = ivErr.Message
	}
	h.writeFrame(conn, liveServerFrame{Type: "error", Kind: string(kind), Message: msg})
	if kind == interview.ErrSessionClosed {
		h.closeWith(conn, websocket.ClosePolicyViolation, "session closed")
		return
	}
	if h.Logger != nil && kind == interview.ErrAPI {
		h.Logger.Error("live turn rejected", "session_id", sessionID, "error", err)
	}
}

func (h LiveHandler) writeFrame(conn *websocket.Conn, frame liveServerFrame) {
	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout()))
	_ = conn.WriteJSON(frame)
}

func (h LiveHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(h.writeTimeout())
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

func (h LiveHandler) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	interval := h.Config.LiveWSPingInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.writeTimeout())
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h LiveHandler) writeTimeout() time.Duration {
	if h.Config.LiveWSWriteTimeout > 0 {
		return h.Config.LiveWSWriteTimeout
	}
	return 5 * time.Second
}

func (h LiveHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.Config.CORSAllowedOrigins) == 0 {
		return false
	}
	_, ok := h.Config.CORSAllowedOrigins[origin]
	return ok
}
