package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vango-go/vai-interviews/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// StorePinger is the readiness hook into the persistence layer. Nil means
// the in-memory store, which is always ready.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type ReadyHandler struct {
	Config config.Config
	Pinger StorePinger
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK       bool     `json:"ok"`
		AuthMode string   `json:"auth_mode"`
		Store    string   `json:"store"`
		Issues   []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	switch h.Config.AuthMode {
	case config.AuthModeRequired, config.AuthModeOptional, config.AuthModeDisabled:
	default:
		issues = append(issues, "invalid auth_mode")
	}
	if h.Config.AuthMode == config.AuthModeRequired && len(h.Config.APIKeys) == 0 {
		issues = append(issues, "auth_mode=required but no api keys configured")
	}
	if h.Config.MaxBodyBytes <= 0 {
		issues = append(issues, "max_body_bytes must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ReadTimeout <= 0 || h.Config.HandlerTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}
	if h.Config.UpstreamConnectTimeout <= 0 || h.Config.UpstreamResponseHeaderTimeout <= 0 {
		issues = append(issues, "upstream timeouts must be > 0")
	}

	store := "memory"
	if h.Config.DatabaseURL != "" {
		store = "postgres"
	}
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			issues = append(issues, "store unreachable")
		}
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:       ok,
		AuthMode: string(h.Config.AuthMode),
		Store:    store,
		Issues:   issues,
	})
}
