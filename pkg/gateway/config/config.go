package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type CompletionProvider string

const (
	CompletionOpenAI CompletionProvider = "openai"
	CompletionGemini CompletionProvider = "gemini"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// Optional WorkOS user management key. When set, owner IDs on incoming
	// requests are resolved against WorkOS before a session is created.
	WorkOSAPIKey string

	MaxBodyBytes int64

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string
	// Run pending schema migrations on boot.
	MigrateOnBoot bool

	// Realtime voice provider (ephemeral credential issuing).
	RealtimeBaseURL string
	RealtimeAPIKey  string
	RealtimeModel   string
	RealtimeVoice   string
	RealtimeBackoff time.Duration

	// Completion model used for reconciliation and evaluation.
	Completion        CompletionProvider
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	LLMRequestTimeout time.Duration

	// Live WebSocket turn feed (/v1/sessions/{id}/live).
	LiveMaxMessageBytes int64
	LiveWSWriteTimeout  time.Duration
	LiveWSPingInterval  time.Duration

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Upstream HTTP client defaults
	UpstreamConnectTimeout        time.Duration
	UpstreamResponseHeaderTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                          envOr("VAI_INTERVIEW_ADDR", ":8080"),
		AuthMode:                      AuthMode(envOr("VAI_INTERVIEW_AUTH_MODE", string(AuthModeRequired))),
		APIKeys:                       make(map[string]struct{}),
		WorkOSAPIKey:                  strings.TrimSpace(os.Getenv("VAI_INTERVIEW_WORKOS_API_KEY")),
		MaxBodyBytes:                  envInt64Or("VAI_INTERVIEW_MAX_BODY_BYTES", 1<<20), // 1 MiB
		CORSAllowedOrigins:            make(map[string]struct{}),
		DatabaseURL:                   strings.TrimSpace(os.Getenv("VAI_INTERVIEW_DATABASE_URL")),
		MigrateOnBoot:                 envBoolOr("VAI_INTERVIEW_MIGRATE_ON_BOOT", true),
		RealtimeBaseURL:               envOr("VAI_INTERVIEW_REALTIME_BASE_URL", "https://api.openai.com/v1"),
		RealtimeAPIKey:                strings.TrimSpace(os.Getenv("VAI_INTERVIEW_REALTIME_API_KEY")),
		RealtimeModel:                 envOr("VAI_INTERVIEW_REALTIME_MODEL", "gpt-4o-realtime-preview"),
		RealtimeVoice:                 envOr("VAI_INTERVIEW_REALTIME_VOICE", "alloy"),
		RealtimeBackoff:               envDurationOr("VAI_INTERVIEW_REALTIME_BACKOFF", 500*time.Millisecond),
		Completion:                    CompletionProvider(envOr("VAI_INTERVIEW_COMPLETION_PROVIDER", string(CompletionOpenAI))),
		OpenAIAPIKey:                  strings.TrimSpace(os.Getenv("VAI_INTERVIEW_OPENAI_API_KEY")),
		OpenAIBaseURL:                 envOr("VAI_INTERVIEW_OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:                   envOr("VAI_INTERVIEW_OPENAI_MODEL", "gpt-4o"),
		GeminiAPIKey:                  strings.TrimSpace(os.Getenv("VAI_INTERVIEW_GEMINI_API_KEY")),
		GeminiModel:                   envOr("VAI_INTERVIEW_GEMINI_MODEL", "gemini-2.0-flash"),
		LLMRequestTimeout:             envDurationOr("VAI_INTERVIEW_LLM_REQUEST_TIMEOUT", 90*time.Second),
		LiveMaxMessageBytes:           envInt64Or("VAI_INTERVIEW_LIVE_MAX_MESSAGE_BYTES", 64*1024),
		LiveWSWriteTimeout:            envDurationOr("VAI_INTERVIEW_LIVE_WS_WRITE_TIMEOUT", 5*time.Second),
		LiveWSPingInterval:            envDurationOr("VAI_INTERVIEW_LIVE_WS_PING_INTERVAL", 20*time.Second),
		ReadHeaderTimeout:             envDurationOr("VAI_INTERVIEW_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                   envDurationOr("VAI_INTERVIEW_READ_TIMEOUT", 30*time.Second),
		HandlerTimeout:                envDurationOr("VAI_INTERVIEW_TOTAL_REQUEST_TIMEOUT", 2*time.Minute),
		ShutdownGracePeriod:           envDurationOr("VAI_INTERVIEW_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		UpstreamConnectTimeout:        envDurationOr("VAI_INTERVIEW_CONNECT_TIMEOUT", 5*time.Second),
		UpstreamResponseHeaderTimeout: envDurationOr("VAI_INTERVIEW_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("VAI_INTERVIEW_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("VAI_INTERVIEW_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}

	for _, origin := range splitCSV(os.Getenv("VAI_INTERVIEW_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_MAX_BODY_BYTES must be > 0")
	}
	switch cfg.Completion {
	case CompletionOpenAI, CompletionGemini:
	default:
		return Config{}, fmt.Errorf("VAI_INTERVIEW_COMPLETION_PROVIDER must be one of openai|gemini")
	}
	if cfg.Completion == CompletionOpenAI && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_OPENAI_API_KEY must be set when VAI_INTERVIEW_COMPLETION_PROVIDER=openai")
	}
	if cfg.Completion == CompletionGemini && cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_GEMINI_API_KEY must be set when VAI_INTERVIEW_COMPLETION_PROVIDER=gemini")
	}
	if cfg.RealtimeAPIKey == "" {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_REALTIME_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.RealtimeBaseURL) == "" {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_REALTIME_BASE_URL must not be empty")
	}
	if cfg.RealtimeBackoff <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_REALTIME_BACKOFF must be > 0")
	}
	if cfg.LLMRequestTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_LLM_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.LiveMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_LIVE_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.LiveWSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_LIVE_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.LiveWSPingInterval <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_LIVE_WS_PING_INTERVAL must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.UpstreamConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.UpstreamResponseHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_RESPONSE_HEADER_TIMEOUT must be > 0")
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("VAI_INTERVIEW_API_KEYS must be set when VAI_INTERVIEW_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
