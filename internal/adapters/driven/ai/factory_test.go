package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewFactory(t *testing.T) {
	factory := NewFactory(domain.DefaultRetrySettings())
	if factory == nil {
		t.Fatal("expected non-nil factory")
	}
	if len(factory.opts) != 1 {
		t.Errorf("expected retry option, got %d options", len(factory.opts))
	}
}

func TestFactory_CreateEmbeddingService_NotConfigured(t *testing.T) {
	factory := NewFactory(domain.DefaultRetrySettings())

	testCases := []struct {
		name     string
		settings *domain.EmbeddingSettings
	}{
		{"nil", nil},
		{"empty provider", &domain.EmbeddingSettings{}},
		{"missing key", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := factory.CreateEmbeddingService(tc.settings)
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if svc != nil {
				t.Error("expected nil service")
			}
		})
	}
}

func TestFactory_CreateEmbeddingService_Providers(t *testing.T) {
	factory := NewFactory(domain.DefaultRetrySettings())

	testCases := []struct {
		name       string
		settings   *domain.EmbeddingSettings
		model      string
		dimensions int
	}{
		{
			name:       "openai",
			settings:   &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-large", APIKey: "sk-test"},
			model:      "text-embedding-3-large",
			dimensions: 3072,
		},
		{
			name:       "google",
			settings:   &domain.EmbeddingSettings{Provider: domain.AIProviderGoogle, APIKey: "key"},
			model:      "text-embedding-004",
			dimensions: 768,
		},
		{
			name:       "ollama",
			settings:   &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "mxbai-embed-large", BaseURL: "http://localhost:11434/v1"},
			model:      "mxbai-embed-large",
			dimensions: 1024,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := factory.CreateEmbeddingService(tc.settings)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc == nil {
				t.Fatal("expected non-nil service")
			}
			if svc.Model() != tc.model {
				t.Errorf("expected model %s, got %s", tc.model, svc.Model())
			}
			if svc.Dimensions() != tc.dimensions {
				t.Errorf("expected %d dimensions, got %d", tc.dimensions, svc.Dimensions())
			}
		})
	}
}

func TestFactory_CreateEmbeddingService_ConfiguredDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Index: i, Embedding: vectorOf(384, 0.1)}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	}))
	defer server.Close()

	factory := NewFactory(domain.DefaultRetrySettings())

	// all-minilm is not in the built-in table
	unset, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "all-minilm",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := unset.Embed(context.Background(), []string{"hello"}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch without an override, got %v", err)
	}

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		Model:      "all-minilm",
		BaseURL:    server.URL,
		Dimensions: 384,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 384 {
		t.Errorf("expected 384 dimensions, got %d", svc.Dimensions())
	}
	vectors, err := svc.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 384 {
		t.Errorf("unexpected vectors: %d", len(vectors))
	}

	// The override must not leak into services created later
	if len(factory.opts) != 1 {
		t.Errorf("expected factory options unchanged, got %d", len(factory.opts))
	}
}

func TestFactory_CreateEmbeddingService_UnknownProvider(t *testing.T) {
	factory := NewFactory(domain.DefaultRetrySettings())

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{Provider: "cohere", APIKey: "key"})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for unknown provider")
	}
}

func TestFactory_CreateChatService(t *testing.T) {
	factory := NewFactory(domain.DefaultRetrySettings())

	svc, err := factory.CreateChatService(nil)
	if err != nil || svc != nil {
		t.Errorf("expected nil service and no error for nil settings, got %v, %v", svc, err)
	}

	testCases := []struct {
		name     string
		settings *domain.LLMSettings
		model    string
	}{
		{"openai", &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"}, "gpt-4o-mini"},
		{"google", &domain.LLMSettings{Provider: domain.AIProviderGoogle, APIKey: "key", Model: "gemini-2.0-flash"}, "gemini-2.0-flash"},
		{"ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama}, "llama3.1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := factory.CreateChatService(tc.settings)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc == nil {
				t.Fatal("expected non-nil service")
			}
			if svc.Model() != tc.model {
				t.Errorf("expected model %s, got %s", tc.model, svc.Model())
			}
		})
	}

	_, err = factory.CreateChatService(&domain.LLMSettings{Provider: "anthropic", APIKey: "key"})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}
