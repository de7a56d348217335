package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure GeminiEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*GeminiEmbedding)(nil)

// Gemini accepts at most this many texts per batchEmbedContents call
const geminiMaxBatch = 100

var geminiModelDimensions = map[string]int{
	"text-embedding-004":   768,
	"embedding-001":        768,
	"gemini-embedding-001": 3072,
}

// GeminiEmbedding implements EmbeddingService using the Google Gemini API
type GeminiEmbedding struct {
	model      string
	dimensions int
	client     *apiClient
}

// NewGeminiEmbedding creates a new Gemini embedding service
func NewGeminiEmbedding(apiKey, model, baseURL string, opts ...Option) (*GeminiEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Google API key is required", domain.ErrInvalidConfig)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model = strings.TrimPrefix(model, "models/")

	o := applyOptions(opts)
	dimensions := o.dimensions
	if dimensions <= 0 {
		var ok bool
		if dimensions, ok = geminiModelDimensions[model]; !ok {
			dimensions = 768
		}
	}

	return &GeminiEmbedding{
		model:      model,
		dimensions: dimensions,
		client:     newAPIClient("gemini", strings.TrimRight(baseURL, "/"), geminiHeaders(apiKey), o, decodeGeminiError),
	}, nil
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed generates document embeddings, in input order
func (e *GeminiEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, "RETRIEVAL_DOCUMENT")
}

// EmbedQuery generates a query embedding
func (e *GeminiEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	out, err := e.embed(ctx, []string{query}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *GeminiEmbedding) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := rejectEmpty(texts); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}

		req := geminiBatchEmbedRequest{Requests: make([]geminiEmbedRequest, 0, end-start)}
		for _, t := range texts[start:end] {
			req.Requests = append(req.Requests, geminiEmbedRequest{
				Model:    "models/" + e.model,
				Content:  geminiContent{Parts: []geminiPart{{Text: t}}},
				TaskType: taskType,
			})
		}

		var resp geminiBatchEmbedResponse
		if err := e.client.postJSON(ctx, "/models/"+e.model+":batchEmbedContents", req, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts", domain.ErrServiceUnavailable, len(resp.Embeddings), end-start)
		}
		for _, emb := range resp.Embeddings {
			embeddings = append(embeddings, emb.Values)
		}
	}

	if err := checkVectors(embeddings, e.dimensions); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension size
func (e *GeminiEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *GeminiEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *GeminiEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *GeminiEmbedding) Close() error {
	e.client.close()
	return nil
}
