package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Services holds the AI services the pipeline calls.
// They can be swapped while requests are in flight; callers grab the current
// instance once per operation and keep using it.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	embeddingService driven.EmbeddingService
	chatService      driven.ChatService
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// ChatService returns the current chat-completion service (may be nil)
func (s *Services) ChatService() driven.ChatService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatService
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetChatService updates the chat service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetChatService(svc driven.ChatService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chatService != nil {
		_ = s.chatService.Close()
	}

	s.chatService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.chatService != nil {
		_ = s.chatService.Close()
		s.chatService = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)

	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetChat validates connectivity before setting chat service
func (s *Services) ValidateAndSetChat(ctx context.Context, svc driven.ChatService) error {
	if svc == nil {
		s.SetChatService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetChatService(svc)
	return nil
}

// Configure builds both services from settings and installs them.
// When validate is set, a service that fails its health check is not installed
// and the error is returned; the other service is still configured.
func (s *Services) Configure(ctx context.Context, factory driven.AIServiceFactory, settings *domain.AISettings, validate bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	var errs []error

	embedding, err := factory.CreateEmbeddingService(&settings.Embedding)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	case embedding == nil:
		logger.Warn("embedding service not configured; indexing and retrieval disabled")
		s.SetEmbeddingService(nil)
	case validate:
		if err := s.ValidateAndSetEmbedding(ctx, embedding); err != nil {
			errs = append(errs, fmt.Errorf("embedding health check: %w", err))
		}
	default:
		s.SetEmbeddingService(embedding)
	}
	if embedding != nil && s.EmbeddingService() == embedding {
		logger.Info("embedding service ready", "provider", settings.Embedding.Provider, "model", embedding.Model(), "dimensions", embedding.Dimensions())
	}

	chat, err := factory.CreateChatService(&settings.LLM)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("chat: %w", err))
	case chat == nil:
		logger.Warn("chat service not configured; answers and titles use fallbacks")
		s.SetChatService(nil)
	case validate:
		if err := s.ValidateAndSetChat(ctx, chat); err != nil {
			errs = append(errs, fmt.Errorf("chat health check: %w", err))
		}
	default:
		s.SetChatService(chat)
	}
	if chat != nil && s.ChatService() == chat {
		logger.Info("chat service ready", "provider", settings.LLM.Provider, "model", chat.Model())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configure ai services: %w", errors.Join(errs...))
	}
	return nil
}
