package llm

import (
	"context"
	"errors"
)

// Message roles for the chat-completion wire contract.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in an ordered chat-completion conversation.
type Message struct {
	Role    string
	Content string
}

// ErrTimeout marks a completion that exceeded the client's request timeout.
// Callers decide whether to retry; the parsers never do.
var ErrTimeout = errors.New("llm: request timed out")

// Client is the minimal contract the pipeline needs: stateless
// request/response against any OpenAI-compatible chat backend. Responses are
// always a single string; provider-specific shapes are normalized inside the
// implementation.
type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error)
}
