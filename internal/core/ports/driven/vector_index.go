package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// VectorIndex is a read-only, in-memory searchable set of embedded records.
// The brute-force vectorstore.Store satisfies it; an ANN index may replace it
// as long as score semantics and tie-breaking are preserved.
type VectorIndex interface {
	// SimilaritySearch returns up to k records, score-descending, ties by ascending index
	SimilaritySearch(query []float32, k int) ([]domain.ScoredRecord, error)

	// Len returns the number of records
	Len() int

	// Dimension returns the embedding length, or 0 when empty
	Dimension() int
}
