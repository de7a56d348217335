package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure GeminiChat implements ChatService
var _ driven.ChatService = (*GeminiChat)(nil)

// GeminiChat implements ChatService using the Gemini generateContent API
type GeminiChat struct {
	model  string
	client *apiClient
}

// NewGeminiChat creates a new Gemini chat service
func NewGeminiChat(apiKey, model, baseURL string, opts ...Option) (*GeminiChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Google API key is required", domain.ErrInvalidConfig)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	o := applyOptions(opts)
	return &GeminiChat{
		model:  strings.TrimPrefix(model, "models/"),
		client: newAPIClient("gemini", strings.TrimRight(baseURL, "/"), geminiHeaders(apiKey), o, decodeGeminiError),
	}, nil
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Complete sends messages and returns the text of the first candidate.
// System messages become the system instruction; assistant turns use the "model" role.
func (c *GeminiChat) Complete(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := validateMessages(messages); err != nil {
		return "", err
	}

	req := geminiGenerateRequest{}
	var system []geminiPart
	for _, m := range messages {
		switch m.Role {
		case domain.ChatRoleSystem:
			system = append(system, geminiPart{Text: m.Content})
		case domain.ChatRoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(req.Contents) == 0 {
		return "", fmt.Errorf("%w: no user or assistant messages", domain.ErrInvalidInput)
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}
	if opts.Temperature > 0 || opts.MaxTokens > 0 {
		cfg := &geminiGenerationConfig{MaxOutputTokens: opts.MaxTokens}
		if opts.Temperature > 0 {
			t := opts.Temperature
			cfg.Temperature = &t
		}
		req.GenerationConfig = cfg
	}

	var resp geminiGenerateResponse
	if err := c.client.post(ctx, opts.SingleAttempt, "/models/"+c.model+":generateContent", req, &resp); err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", domain.ErrInvalidInput, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", domain.ErrServiceUnavailable)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// Model returns the model name being used
func (c *GeminiChat) Model() string {
	return c.model
}

// Ping verifies the chat service is available
func (c *GeminiChat) Ping(ctx context.Context) error {
	_, err := c.Complete(ctx, []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "ping"}}, driven.ChatOptions{MaxTokens: 1})
	return err
}

// Close releases resources held by the chat service
func (c *GeminiChat) Close() error {
	c.client.close()
	return nil
}
