package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ChatService = (*MockChatService)(nil)

// MockChatService is a mock implementation of ChatService for testing.
// It returns Reply (or the result of CompleteFn) and records every request.
type MockChatService struct {
	mu sync.Mutex

	Reply      string
	Err        error
	CompleteFn func(messages []domain.ChatMessage, opts driven.ChatOptions) (string, error)

	requests [][]domain.ChatMessage
}

// NewMockChatService creates a mock that always answers with reply
func NewMockChatService(reply string) *MockChatService {
	return &MockChatService{Reply: reply}
}

func (m *MockChatService) Complete(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	copied := make([]domain.ChatMessage, len(messages))
	copy(copied, messages)
	m.requests = append(m.requests, copied)
	fn, reply, err := m.CompleteFn, m.Reply, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(messages, opts)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (m *MockChatService) Model() string {
	return "mock-chat-model"
}

func (m *MockChatService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockChatService) Close() error {
	return nil
}

// Calls returns the number of Complete calls
func (m *MockChatService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the messages of the most recent call
func (m *MockChatService) LastRequest() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
