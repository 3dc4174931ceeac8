package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vango-go/vai-interviews/pkg/gateway/config"
)

func healthyConfig() config.Config {
	return config.Config{
		AuthMode: config.AuthModeDisabled,

		MaxBodyBytes:                  1 << 20,
		ReadHeaderTimeout:             time.Second,
		ReadTimeout:                   time.Second,
		HandlerTimeout:                time.Minute,
		UpstreamConnectTimeout:        time.Second,
		UpstreamResponseHeaderTimeout: time.Second,
	}
}

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != "ok\n" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestReadyHandler_Ready(t *testing.T) {
	h := ReadyHandler{Config: healthyConfig()}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Store string `json:"store"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK {
		t.Fatalf("ok=false: %s", rr.Body.String())
	}
	if resp.Store != "memory" {
		t.Fatalf("store=%q, want memory", resp.Store)
	}
}

func TestReadyHandler_RequiredAuthEmptyKeys_NotReady(t *testing.T) {
	cfg := healthyConfig()
	cfg.AuthMode = config.AuthModeRequired
	cfg.APIKeys = map[string]struct{}{}
	h := ReadyHandler{Config: cfg}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestReadyHandler_StoreUnreachable_NotReady(t *testing.T) {
	cfg := healthyConfig()
	cfg.DatabaseURL = "postgres://localhost/interviews"
	h := ReadyHandler{Config: cfg, Pinger: failingPinger{}}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}

	var resp struct {
		Store  string   `json:"store"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Store != "postgres" {
		t.Fatalf("store=%q", resp.Store)
	}
	if len(resp.Issues) != 1 || resp.Issues[0] != "store unreachable" {
		t.Fatalf("issues=%v", resp.Issues)
	}
}

func TestReadyHandler_StoreReachable_Ready(t *testing.T) {
	cfg := healthyConfig()
	cfg.DatabaseURL = "postgres://localhost/interviews"
	h := ReadyHandler{Config: cfg, Pinger: okPinger{}}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}
