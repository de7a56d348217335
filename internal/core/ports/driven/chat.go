package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChatOptions tunes a single chat-completion call
type ChatOptions struct {
	Temperature float64
	MaxTokens   int

	// SingleAttempt sends exactly one request, bypassing the adapter's retry policy
	SingleAttempt bool
}

// ChatService issues chat-completion requests to a language model
type ChatService interface {
	// Complete sends role-tagged messages and returns the assistant reply text
	Complete(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the chat service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the chat service
	Close() error
}
