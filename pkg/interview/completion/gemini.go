package completion

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Client against the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini completion client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, interview.NewUpstreamError("create gemini client", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete flattens the chat messages into a single prompt and returns the
// model's text response. Gemini has no system role on this path; system
// content is prepended to the user prompt.
func (g *Gemini) Complete(ctx context.Context, msgs []Message) (string, error) {
	var sb strings.Builder
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.Content)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(sb.String()), nil)
	if err != nil {
		return "", interview.NewUpstreamError(fmt.Sprintf("gemini completion failed (model %s)", g.model), err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", interview.NewMalformedOutputError("gemini completion response has no content", nil)
	}
	return text, nil
}
