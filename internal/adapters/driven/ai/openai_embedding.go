package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

// OpenAIEmbedding implements EmbeddingService against an OpenAI-compatible /embeddings API
type OpenAIEmbedding struct {
	model      string
	dimensions int
	client     *apiClient
}

// Model dimensions for known embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"bge-m3":                 1024,
}

// NewOpenAIEmbedding creates a new OpenAI embedding service
func NewOpenAIEmbedding(apiKey, model, baseURL string, opts ...Option) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidConfig)
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return newOpenAIEmbedding("openai", apiKey, model, baseURL, opts), nil
}

// NewOllamaEmbedding creates an embedding service for a self-hosted Ollama server
func NewOllamaEmbedding(baseURL, model string, opts ...Option) (*OpenAIEmbedding, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return newOpenAIEmbedding("ollama", "", model, baseURL, opts), nil
}

func newOpenAIEmbedding(provider, apiKey, model, baseURL string, opts []Option) *OpenAIEmbedding {
	o := applyOptions(opts)

	dimensions := o.dimensions
	if dimensions <= 0 {
		var ok bool
		if dimensions, ok = openAIModelDimensions[model]; !ok {
			// Default to 1536 for unknown models
			dimensions = 1536
		}
	}

	return &OpenAIEmbedding{
		model:      model,
		dimensions: dimensions,
		client:     newAPIClient(provider, strings.TrimRight(baseURL, "/"), openAIHeaders(apiKey), o, decodeOpenAIError),
	}
}

// embeddingRequest is the request body for the embedding API
type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// embeddingResponse is the response from the embedding API
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates embeddings for multiple texts, in input order
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := rejectEmpty(texts); err != nil {
		return nil, err
	}

	var resp embeddingResponse
	err := e.client.postJSON(ctx, "/embeddings", embeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
	}, &resp)
	if err != nil {
		return nil, err
	}

	// Place by index to ensure order matches input
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrServiceUnavailable, d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	if err := checkVectors(embeddings, e.dimensions); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a retrieval query
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.client.close()
	return nil
}

// rejectEmpty fails before any network call if a text is blank
func rejectEmpty(texts []string) error {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: text %d is empty", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

// checkVectors verifies one vector per input, all of the expected size
func checkVectors(vectors [][]float32, dimensions int) error {
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: no embedding returned for text %d", domain.ErrServiceUnavailable, i)
		}
		if dimensions > 0 && len(v) != dimensions {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", domain.ErrDimensionMismatch, i, len(v), dimensions)
		}
	}
	return nil
}
