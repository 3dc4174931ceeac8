// Package realtime brokers short-lived session credentials from the external
// realtime voice provider.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

const (
	// DefaultBaseURL is the default realtime provider endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the default realtime conversation model.
	DefaultModel = "gpt-4o-realtime-preview"

	// DefaultVoice is the default agent voice.
	DefaultVoice = "alloy"

	// maxRetries bounds transient-failure retries. This is a user-facing
	// synchronous call; it must never retry indefinitely.
	maxRetries = 2
)

// Broker issues realtime session credentials. Satisfies
// interview.TokenBroker.
type Broker struct {
	apiKey     string
	baseURL    string
	model      string
	voice      string
	httpClient *http.Client
	backoff    time.Duration
}

// Option customizes the broker.
type Option func(*Broker)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(baseURL string) Option {
	return func(b *Broker) {
		if strings.TrimSpace(baseURL) != "" {
			b.baseURL = baseURL
		}
	}
}

// WithModel overrides the realtime model.
func WithModel(model string) Option {
	return func(b *Broker) {
		if strings.TrimSpace(model) != "" {
			b.model = model
		}
	}
}

// WithVoice overrides the agent voice.
func WithVoice(voice string) Option {
	return func(b *Broker) {
		if strings.TrimSpace(voice) != "" {
			b.voice = voice
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Broker) {
		if hc != nil {
			b.httpClient = hc
		}
	}
}

// WithBackoff overrides the retry backoff interval.
func WithBackoff(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.backoff = d
		}
	}
}

// New creates a broker.
func New(apiKey string, opts ...Option) *Broker {
	b := &Broker{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		voice:      DefaultVoice,
		httpClient: &http.Client{},
		backoff:    250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type sessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Issue exchanges the rendered agent brief for a short-lived credential.
// Transport errors and 5xx responses are retried a bounded number of times;
// 4xx responses fail immediately.
func (b *Broker) Issue(ctx context.Context, instructions string) (*interview.Credential, error) {
	body, err := json.Marshal(sessionRequest{
		Model:        b.model,
		Voice:        b.voice,
		Instructions: instructions,
	})
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("marshal realtime session request: %v", err))
	}

	var cred *interview.Credential
	backoff := retry.WithMaxRetries(maxRetries, retry.NewConstant(b.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := b.issueOnce(ctx, body)
		if err != nil {
			return err
		}
		cred = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (b *Broker) issueOnce(ctx context.Context, body []byte) (*interview.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.sessionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("create realtime session request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(interview.NewUpstreamError("realtime session request failed", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, retry.RetryableError(interview.NewUpstreamError("read realtime session response", err))
	}
	if resp.StatusCode >= 500 {
		return nil, retry.RetryableError(interview.NewUpstreamError(fmt.Sprintf("realtime provider returned status %d", resp.StatusCode), nil))
	}
	if resp.StatusCode >= 400 {
		return nil, interview.NewUpstreamError(fmt.Sprintf("realtime provider returned status %d", resp.StatusCode), nil)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, interview.NewUpstreamError("realtime session response is not valid JSON", err)
	}
	if strings.TrimSpace(parsed.ClientSecret.Value) == "" {
		return nil, interview.NewUpstreamError("realtime session response has no client secret", nil)
	}
	return &interview.Credential{
		Secret:    parsed.ClientSecret.Value,
		ExpiresAt: time.Unix(parsed.ClientSecret.ExpiresAt, 0).UTC(),
	}, nil
}

func (b *Broker) sessionsURL() string {
	return strings.TrimRight(b.baseURL, "/") + "/realtime/sessions"
}
