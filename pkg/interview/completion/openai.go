package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

const (
	// DefaultBaseURL is the default OpenAI-compatible API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultMaxTokens bounds completion size if not overridden.
	DefaultMaxTokens = 2000
)

// OpenAI implements Client against an OpenAI-compatible Chat Completions
// endpoint.
type OpenAI struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	jsonMode    bool
	httpClient  *http.Client
}

// OpenAIOption customizes the client.
type OpenAIOption func(*OpenAI)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(c *OpenAI) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = baseURL
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAI) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAI) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithJSONMode forces response_format json_object on providers that honor it.
func WithJSONMode(on bool) OpenAIOption {
	return func(c *OpenAI) { c.jsonMode = on }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(c *OpenAI) { c.temperature = t }
}

// NewOpenAI creates a new OpenAI-compatible completion client.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: 0.3,
		maxTokens:   DefaultMaxTokens,
		httpClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a non-streaming chat request and returns the first choice's
// content.
func (c *OpenAI) Complete(ctx context.Context, msgs []Message) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if c.jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", interview.NewAPIError(fmt.Sprintf("marshal completion request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return "", interview.NewAPIError(fmt.Sprintf("create completion request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", interview.NewUpstreamError("completion request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", interview.NewUpstreamError("read completion response", err)
	}
	if resp.StatusCode >= 400 {
		return "", interview.NewUpstreamError(fmt.Sprintf("completion provider returned status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", interview.NewMalformedOutputError("completion response is not valid JSON", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", interview.NewMalformedOutputError("completion response has no content", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAI) chatCompletionsURL() string {
	return strings.TrimRight(c.baseURL, "/") + "/chat/completions"
}
