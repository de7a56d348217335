package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SimilaritySearch returns up to k records ranked by cosine similarity to query.
// Scores are clamped to [0,1]; equal scores keep ascending index order.
func (s *Store) SimilaritySearch(query []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if s.Len() == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", domain.ErrDimensionMismatch, len(query), s.dimension)
	}

	queryNorm := norm(query)
	scored := make([]domain.ScoredRecord, len(s.records))
	for i, r := range s.records {
		scored[i] = domain.ScoredRecord{Record: r, Score: cosine(query, queryNorm, r.Embedding)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := make([]domain.ScoredRecord, k)
	for i := 0; i < k; i++ {
		out[i] = domain.ScoredRecord{Record: scored[i].Record.Clone(), Score: scored[i].Score}
	}
	return out, nil
}

// cosine computes the clamped cosine similarity. Zero vectors score 0.
func cosine(a []float32, aNorm float64, b []float32) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	score := dot / (aNorm * bNorm)
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
