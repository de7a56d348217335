// Package vectorstore holds the in-memory, immutable vector store used for
// per-document retrieval. Stores are built once from chunks and embeddings,
// serialized for persistence, and merged per chat session.
package vectorstore

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Store)(nil)

// Store is an immutable set of embedded records.
// All records share one dimensionality and Index equals the record position.
type Store struct {
	records   []domain.VectorRecord
	dimension int
}

// Empty returns a store with no records.
func Empty() *Store {
	return &Store{}
}

// Build creates a store from chunks and their embeddings.
// embeddings[i] must belong to chunks[i]; lengths and dimensionality must agree.
func Build(chunks []domain.Chunk, embeddings [][]float32) (*Store, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrDimensionMismatch, len(chunks), len(embeddings))
	}

	s := &Store{records: make([]domain.VectorRecord, len(chunks))}
	for i, chunk := range chunks {
		if chunk.Metadata.DocumentID == "" {
			return nil, fmt.Errorf("%w: chunk %d has no document id", domain.ErrInvalidInput, i)
		}
		emb := embeddings[i]
		if len(emb) == 0 {
			return nil, fmt.Errorf("%w: embedding %d is empty", domain.ErrDimensionMismatch, i)
		}
		if i == 0 {
			s.dimension = len(emb)
		} else if len(emb) != s.dimension {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", domain.ErrDimensionMismatch, i, len(emb), s.dimension)
		}

		copied := make([]float32, len(emb))
		copy(copied, emb)
		s.records[i] = domain.VectorRecord{
			Content:   chunk.Text,
			Metadata:  chunk.Metadata.Clone(),
			Embedding: copied,
			Index:     i,
		}
	}
	return s, nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Dimension returns the embedding length, or 0 for an empty store.
func (s *Store) Dimension() int {
	if s == nil {
		return 0
	}
	return s.dimension
}

// Records returns deep copies of the records in index order.
func (s *Store) Records() []domain.VectorRecord {
	if s == nil {
		return nil
	}
	out := make([]domain.VectorRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// DocumentIDs returns the distinct document IDs in record order.
func (s *Store) DocumentIDs() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, r := range s.records {
		if !seen[r.Metadata.DocumentID] {
			seen[r.Metadata.DocumentID] = true
			ids = append(ids, r.Metadata.DocumentID)
		}
	}
	return ids
}

// Serialize returns the storage form of the store.
// Deserialize(s.Serialize()) yields a store with identical search results.
func (s *Store) Serialize() *domain.SerializedStore {
	return &domain.SerializedStore{Records: s.Records()}
}

// Deserialize rebuilds a store from its storage form.
// Missing embeddings, missing document ids and out-of-order indices are ErrCorruptStore;
// inconsistent dimensionality is both ErrCorruptStore and ErrDimensionMismatch.
func Deserialize(data *domain.SerializedStore) (*Store, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil snapshot", domain.ErrCorruptStore)
	}

	s := &Store{records: make([]domain.VectorRecord, len(data.Records))}
	for i, r := range data.Records {
		if len(r.Embedding) == 0 {
			return nil, fmt.Errorf("%w: record %d has no embedding", domain.ErrCorruptStore, i)
		}
		if r.Metadata.DocumentID == "" {
			return nil, fmt.Errorf("%w: record %d has no %s", domain.ErrCorruptStore, i, domain.MetadataDocumentIDKey)
		}
		if r.Index != i {
			return nil, fmt.Errorf("%w: record %d has index %d", domain.ErrCorruptStore, i, r.Index)
		}
		if i == 0 {
			s.dimension = len(r.Embedding)
		} else if len(r.Embedding) != s.dimension {
			return nil, fmt.Errorf("%w: %w: record %d has %d dimensions, expected %d",
				domain.ErrCorruptStore, domain.ErrDimensionMismatch, i, len(r.Embedding), s.dimension)
		}
		s.records[i] = r.Clone()
	}
	return s, nil
}

// DeserializeWithDimension is Deserialize plus a check against the active embedding model.
func DeserializeWithDimension(data *domain.SerializedStore, dimension int) (*Store, error) {
	s, err := Deserialize(data)
	if err != nil {
		return nil, err
	}
	if s.Len() > 0 && dimension > 0 && s.dimension != dimension {
		return nil, fmt.Errorf("%w: store has %d dimensions, embedding model produces %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	return s, nil
}

// Merge combines stores into a new one. Records keep their relative order,
// stores are concatenated in argument order and indices are reassigned from 0.
// Empty and nil stores are skipped; inputs are never modified.
func Merge(stores ...*Store) (*Store, error) {
	merged := &Store{}
	for i, s := range stores {
		if s.Len() == 0 {
			continue
		}
		if merged.dimension == 0 {
			merged.dimension = s.dimension
		} else if s.dimension != merged.dimension {
			return nil, fmt.Errorf("%w: store %d has %d dimensions, expected %d", domain.ErrDimensionMismatch, i, s.dimension, merged.dimension)
		}
		for _, r := range s.records {
			c := r.Clone()
			c.Index = len(merged.records)
			merged.records = append(merged.records, c)
		}
	}
	return merged, nil
}

// MergeSerialized deserializes and merges snapshots in order.
func MergeSerialized(snapshots ...*domain.SerializedStore) (*Store, error) {
	stores := make([]*Store, 0, len(snapshots))
	for i, snap := range snapshots {
		s, err := Deserialize(snap)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d: %w", i, err)
		}
		stores = append(stores, s)
	}
	return Merge(stores...)
}
