package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

func TestIssue_ReturnsCredential(t *testing.T) {
	var gotReq sessionRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realtime/sessions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"client_secret": map[string]any{
				"value":      "eph_secret",
				"expires_at": time.Now().Add(time.Minute).Unix(),
			},
		})
	}))
	defer ts.Close()

	b := New("sk-realtime", WithBaseURL(ts.URL), WithModel("gpt-4o-realtime-preview"), WithVoice("verse"))
	cred, err := b.Issue(context.Background(), "conduct the interview")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cred.Secret != "eph_secret" {
		t.Fatalf("secret=%q", cred.Secret)
	}
	if cred.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expires_at=%v is in the past", cred.ExpiresAt)
	}
	if gotReq.Instructions != "conduct the interview" || gotReq.Voice != "verse" {
		t.Fatalf("request=%+v", gotReq)
	}
}

func TestIssue_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"client_secret": map[string]any{"value": "eph_after_retry", "expires_at": time.Now().Add(time.Minute).Unix()},
		})
	}))
	defer ts.Close()

	b := New("sk-realtime", WithBaseURL(ts.URL), WithBackoff(time.Millisecond))
	cred, err := b.Issue(context.Background(), "brief")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cred.Secret != "eph_after_retry" {
		t.Fatalf("secret=%q", cred.Secret)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls=%d, want 3", got)
	}
}

func TestIssue_BoundedRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	b := New("sk-realtime", WithBaseURL(ts.URL), WithBackoff(time.Millisecond))
	_, err := b.Issue(context.Background(), "brief")
	if !interview.IsKind(err, interview.ErrUpstream) {
		t.Fatalf("err=%v, want upstream_unavailable", err)
	}
	if got := calls.Load(); got != maxRetries+1 {
		t.Fatalf("calls=%d, want %d", got, maxRetries+1)
	}
}

func TestIssue_ClientErrorsFailImmediately(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	b := New("sk-bad", WithBaseURL(ts.URL), WithBackoff(time.Millisecond))
	_, err := b.Issue(context.Background(), "brief")
	if !interview.IsKind(err, interview.ErrUpstream) {
		t.Fatalf("err=%v, want upstream_unavailable", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d, want 1 (4xx must not retry)", got)
	}
}
