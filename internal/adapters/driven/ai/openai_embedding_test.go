package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// fastRetry keeps retry tests quick
func fastRetry() Option {
	return WithRetry(domain.RetrySettings{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		RequestTimeout: 2 * time.Second,
	})
}

func vectorOf(dim int, v float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewOpenAIEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedding("", "text-embedding-3-small", "")
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	emb, err := NewOpenAIEmbedding("sk-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.Model() != "text-embedding-3-small" {
		t.Errorf("expected default model text-embedding-3-small, got %s", emb.Model())
	}
	if emb.client.baseURL != defaultOpenAIBaseURL {
		t.Errorf("expected default base URL, got %s", emb.client.baseURL)
	}
}

func TestNewOpenAIEmbedding_CustomBaseURL(t *testing.T) {
	emb, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", "https://custom.api.com/v1/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.client.baseURL != "https://custom.api.com/v1" {
		t.Errorf("expected trailing slash trimmed, got %s", emb.client.baseURL)
	}
}

func TestOpenAIEmbedding_Dimensions(t *testing.T) {
	testCases := []struct {
		model      string
		dimensions int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			emb, err := NewOpenAIEmbedding("sk-test", tc.model, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if emb.Dimensions() != tc.dimensions {
				t.Errorf("expected %d dimensions, got %d", tc.dimensions, emb.Dimensions())
			}
		})
	}
}

func TestOpenAIEmbedding_WithDimensions(t *testing.T) {
	emb, err := NewOpenAIEmbedding("sk-test", "custom-model", "", WithDimensions(256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.Dimensions() != 256 {
		t.Errorf("expected 256 dimensions, got %d", emb.Dimensions())
	}
}

func TestNewOllamaEmbedding_NoKeyRequired(t *testing.T) {
	emb, err := NewOllamaEmbedding("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.Model() != "nomic-embed-text" {
		t.Errorf("expected default model nomic-embed-text, got %s", emb.Model())
	}
	if emb.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", emb.Dimensions())
	}
	if emb.client.headers != nil {
		t.Error("expected no auth header for ollama")
	}
}

func TestOpenAIEmbedding_Embed_EmptyInput(t *testing.T) {
	emb, _ := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", "")

	result, err := emb.Embed(context.Background(), []string{})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for empty input, got %v", result)
	}
}

func TestOpenAIEmbedding_Embed_RejectsEmptyTextWithoutCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)

	_, err := emb.Embed(context.Background(), []string{"hello", "   "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no API call, got %d", calls)
	}
}

func TestOpenAIEmbedding_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("expected Bearer sk-test, got %s", r.Header.Get("Authorization"))
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected request: %+v", req)
		}

		// Return out of order to check index placement
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.4,0.5,0.6]},{"index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL, WithDimensions(3))

	result, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if result[0][0] != 0.1 || result[1][0] != 0.4 {
		t.Errorf("embeddings out of order: %v", result)
	}
}

func TestOpenAIEmbedding_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL, WithDimensions(3))

	_, err := emb.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_MissingVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, WithDimensions(3))

	_, err := emb.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestOpenAIEmbedding_EmbedQuery_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL, WithDimensions(3))

	result, err := emb.EmbedQuery(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(result))
	}
}

func TestOpenAIEmbedding_Embed_StatusMapping(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		want   error
		calls  int32
	}{
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuth, 1},
		{"forbidden", http.StatusForbidden, domain.ErrAuth, 1},
		{"bad request", http.StatusBadRequest, domain.ErrInvalidInput, 1},
		{"not found", http.StatusNotFound, domain.ErrInvalidConfig, 1},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited, 3},
		{"server error", http.StatusInternalServerError, domain.ErrServiceUnavailable, 3},
		{"bad gateway", http.StatusBadGateway, domain.ErrServiceUnavailable, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test_error"}}`))
			}))
			defer server.Close()

			emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, fastRetry())

			_, err := emb.Embed(context.Background(), []string{"text"})
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, apiErr.StatusCode)
			}
			if got := atomic.LoadInt32(&calls); got != tc.calls {
				t.Errorf("expected %d calls, got %d", tc.calls, got)
			}
		})
	}
}

func TestOpenAIEmbedding_Embed_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0,0]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, WithDimensions(3), fastRetry())

	result, err := emb.EmbedQuery(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result[0] != 1 {
		t.Errorf("unexpected vector %v", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestOpenAIEmbedding_Embed_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, fastRetry())

	_, err := emb.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_NetworkError(t *testing.T) {
	emb, _ := NewOpenAIEmbedding("sk-test", "m", "http://127.0.0.1:1", fastRetry())

	_, err := emb.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestOpenAIEmbedding_Embed_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, fastRetry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := emb.Embed(ctx, []string{"text"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOpenAIEmbedding_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "m", server.URL, WithDimensions(3))

	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
	if err := emb.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}
