package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// contextSeparator joins matching chunks into one context block
const contextSeparator = "\n\n"

// Retriever embeds a query once and filters index matches by a similarity threshold.
type Retriever struct {
	services *runtime.Services
	logger   *slog.Logger
}

// NewRetriever creates a Retriever using the current embedding service.
func NewRetriever(services *runtime.Services, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{services: services, logger: logger}
}

// Retrieve returns the content of the top k records whose score is at least threshold.
// When nothing clears the threshold the result carries NoRelevantContentMarker.
// Embedding failures propagate; they are never reported as "no relevant content".
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, index driven.VectorIndex, threshold float64) (*domain.RetrievalResult, error) {
	start := time.Now()

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", domain.ErrInvalidInput, threshold)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if index == nil || index.Len() == 0 {
		return nil, domain.ErrStoreNotBuilt
	}

	embedder := r.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}

	queryEmbedding, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := index.SimilaritySearch(queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	result := &domain.RetrievalResult{Threshold: threshold}
	contents := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < threshold {
			continue
		}
		result.Matches = append(result.Matches, c)
		contents = append(contents, c.Record.Content)
	}

	if len(contents) == 0 {
		result.Context = domain.NoRelevantContentMarker
		result.NoRelevantContent = true
	} else {
		result.Context = strings.Join(contents, contextSeparator)
	}
	result.TookMs = time.Since(start).Milliseconds()

	r.logger.Debug("retrieval finished",
		"candidates", len(candidates),
		"matches", len(result.Matches),
		"threshold", threshold,
		"took_ms", result.TookMs)

	return result, nil
}
