package ai

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct {
	opts []Option
}

// NewFactory creates a new AI service factory.
// The options apply to every service it creates.
func NewFactory(retry domain.RetrySettings, opts ...Option) *Factory {
	return &Factory{opts: append([]Option{WithRetry(retry)}, opts...)}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	opts := f.opts
	if settings.Dimensions > 0 {
		opts = append(append([]Option(nil), f.opts...), WithDimensions(settings.Dimensions))
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	// Assign only on success so a failed constructor never yields a non-nil interface
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		var e *OpenAIEmbedding
		if e, err = NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, opts...); err == nil {
			svc = e
		}
	case domain.AIProviderGoogle:
		var e *GeminiEmbedding
		if e, err = NewGeminiEmbedding(settings.APIKey, settings.Model, settings.BaseURL, opts...); err == nil {
			svc = e
		}
	case domain.AIProviderOllama:
		var e *OpenAIEmbedding
		if e, err = NewOllamaEmbedding(settings.BaseURL, settings.Model, opts...); err == nil {
			svc = e
		}
	default:
		err = fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateChatService creates a chat-completion service from settings
func (f *Factory) CreateChatService(settings *domain.LLMSettings) (driven.ChatService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.ChatService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		var c *OpenAIChat
		if c, err = NewOpenAIChat(settings.APIKey, settings.Model, settings.BaseURL, f.opts...); err == nil {
			svc = c
		}
	case domain.AIProviderGoogle:
		var c *GeminiChat
		if c, err = NewGeminiChat(settings.APIKey, settings.Model, settings.BaseURL, f.opts...); err == nil {
			svc = c
		}
	case domain.AIProviderOllama:
		var c *OpenAIChat
		if c, err = NewOllamaChat(settings.BaseURL, settings.Model, f.opts...); err == nil {
			svc = c
		}
	default:
		err = fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}
