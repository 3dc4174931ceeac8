package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

func newLiveTestServer(t *testing.T) (SessionsHandler, *httptest.Server) {
	t.Helper()
	h := newTestHandler(t)
	live := LiveHandler{Config: h.Config, Service: h.Service, Logger: h.Logger}

	mux := http.NewServeMux()
	mux.Handle("GET /v1/sessions/{id}/live", live)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func dialLive(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + sessionID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) liveServerFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame liveServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestLive_TurnsAreAckedInOrder(t *testing.T) {
	h, srv := newLiveTestServer(t)
	sess := createSession(t, h)
	startSession(t, h, sess.ID)

	conn := dialLive(t, srv, sess.ID)
	for i, user := range []string{"first answer", "second answer"} {
		if err := conn.WriteJSON(liveClientFrame{Type: "turn", AIText: "q", UserText: user}); err != nil {
			t.Fatalf("write turn: %v", err)
		}
		ack := readFrame(t, conn)
		if ack.Type != "turn_ack" || ack.Seq != i+1 {
			t.Fatalf("ack=%+v, want turn_ack seq %d", ack, i+1)
		}
	}

	got, err := h.Service.Get(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Transcript) != 2 || got.Transcript[1].UserText != "second answer" {
		t.Fatalf("transcript=%+v", got.Transcript)
	}
}

func TestLive_TerminateFrameClosesSession(t *testing.T) {
	h, srv := newLiveTestServer(t)
	sess := createSession(t, h)
	startSession(t, h, sess.ID)

	conn := dialLive(t, srv, sess.ID)
	if err := conn.WriteJSON(liveClientFrame{Type: "turn", AIText: "q", UserText: "a"}); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "turn_ack" {
		t.Fatalf("frame=%+v", frame)
	}

	if err := conn.WriteJSON(liveClientFrame{Type: "terminate", Reason: "graceful"}); err != nil {
		t.Fatalf("write terminate: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "terminated" {
		t.Fatalf("frame=%+v", frame)
	}

	got, err := h.Service.Get(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Terminated() || *got.TerminationReason != interview.TerminationGraceful {
		t.Fatalf("session=%+v", got)
	}
}

func TestLive_UpgradeRejectedWhenSessionClosed(t *testing.T) {
	h, srv := newLiveTestServer(t)
	sess := createSession(t, h)
	startSession(t, h, sess.ID)
	appendTurn(t, h, sess.ID, "q", "a")
	rr := doJSON(t, h.Terminate, http.MethodPost, "/v1/sessions/"+sess.ID+"/terminate",
		`{"reason":"abrupt"}`, map[string]string{"id": sess.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("terminate status=%d", rr.Code)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + sess.ID + "/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("dial succeeded against a closed session")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestLive_UpgradeRejectedForUnknownSession(t *testing.T) {
	_, srv := newLiveTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/nope/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("dial succeeded against an unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestLive_UnknownFrameTypeIsSoftError(t *testing.T) {
	h, srv := newLiveTestServer(t)
	sess := createSession(t, h)
	startSession(t, h, sess.ID)

	conn := dialLive(t, srv, sess.ID)
	if err := conn.WriteJSON(liveClientFrame{Type: "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != "error" || frame.Kind != "invalid_request_error" {
		t.Fatalf("frame=%+v", frame)
	}

	// Connection stays usable after a soft error.
	if err := conn.WriteJSON(liveClientFrame{Type: "turn", AIText: "q", UserText: "a"}); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != "turn_ack" {
		t.Fatalf("frame=%+v", frame)
	}
}
