// Package completion provides the chat-completion clients used by the
// reconciliation and evaluation passes, plus extraction of embedded JSON
// from model output.
package completion

import "context"

// Message is one chat message sent to a completion model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a completion model provider. Implementations return the raw
// response text; callers extract embedded JSON themselves because models may
// wrap JSON in prose or code fences.
type Client interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
