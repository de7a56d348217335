package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure OpenAIChat implements ChatService
var _ driven.ChatService = (*OpenAIChat)(nil)

// OpenAIChat implements ChatService against an OpenAI-compatible /chat/completions API
type OpenAIChat struct {
	model  string
	client *apiClient
}

// NewOpenAIChat creates a new OpenAI chat service
func NewOpenAIChat(apiKey, model, baseURL string, opts ...Option) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidConfig)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return newOpenAIChat("openai", apiKey, model, baseURL, opts), nil
}

// NewOllamaChat creates a chat service for a self-hosted Ollama server
func NewOllamaChat(baseURL, model string, opts ...Option) (*OpenAIChat, error) {
	if model == "" {
		model = "llama3.1"
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return newOpenAIChat("ollama", "", model, baseURL, opts), nil
}

func newOpenAIChat(provider, apiKey, model, baseURL string, opts []Option) *OpenAIChat {
	o := applyOptions(opts)
	return &OpenAIChat{
		model:  model,
		client: newAPIClient(provider, strings.TrimRight(baseURL, "/"), openAIHeaders(apiKey), o, decodeOpenAIError),
	}
}

type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends messages and returns the first choice's content
func (c *OpenAIChat) Complete(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := validateMessages(messages); err != nil {
		return "", err
	}

	req := chatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}

	var resp chatCompletionResponse
	if err := c.client.post(ctx, opts.SingleAttempt, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", domain.ErrServiceUnavailable, c.client.provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the model name being used
func (c *OpenAIChat) Model() string {
	return c.model
}

// Ping verifies the chat service is available
func (c *OpenAIChat) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "ping"}}, driven.ChatOptions{MaxTokens: 1})
	return err
}

// Close releases resources held by the chat service
func (c *OpenAIChat) Close() error {
	c.client.close()
	return nil
}

// validateMessages rejects empty conversations and unknown roles before any call
func validateMessages(messages []domain.ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: no messages", domain.ErrInvalidInput)
	}
	for i, m := range messages {
		if !m.Role.IsValid() {
			return fmt.Errorf("%w: message %d has unknown role %q", domain.ErrInvalidInput, i, m.Role)
		}
	}
	return nil
}
