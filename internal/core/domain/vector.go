package domain

import "time"

// NoRelevantContentMarker is returned as retrieval context when no record clears the threshold.
// It is distinct from an empty string so prompt assembly can branch on it.
const NoRelevantContentMarker = "No relevant content found."

// VectorRecord is the atomic unit stored in a vector store
type VectorRecord struct {
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"` // Ordinal position assigned at insertion
}

// Clone returns a deep copy of the record
func (r VectorRecord) Clone() VectorRecord {
	emb := make([]float32, len(r.Embedding))
	copy(emb, r.Embedding)
	return VectorRecord{
		Content:   r.Content,
		Metadata:  r.Metadata.Clone(),
		Embedding: emb,
		Index:     r.Index,
	}
}

// SerializedStore is the storage-friendly snapshot of a vector store.
// This is the only at-rest format of the pipeline.
type SerializedStore struct {
	Records []VectorRecord `json:"records"`
}

// Dimension returns the embedding length of the first record, or 0 when empty
func (s *SerializedStore) Dimension() int {
	if s == nil || len(s.Records) == 0 {
		return 0
	}
	return len(s.Records[0].Embedding)
}

// ScoredRecord pairs a record with its similarity to a query, in [0,1]
type ScoredRecord struct {
	Record VectorRecord `json:"record"`
	Score  float64      `json:"score"`
}

// StoredVectorStore is the persisted, current store of one document.
// Every rebuild gets a fresh BuildID; there is at most one row per document.
type StoredVectorStore struct {
	DocumentID     string           `json:"document_id"`
	BuildID        string           `json:"build_id"`
	EmbeddingModel string           `json:"embedding_model"`
	Dimensions     int              `json:"dimensions"`
	RecordCount    int              `json:"record_count"`
	Data           *SerializedStore `json:"data,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// RetrievalResult is the transient outcome of a similarity retrieval
type RetrievalResult struct {
	// Context is the joined content of matching records, or NoRelevantContentMarker
	Context string `json:"context"`

	// Matches are the records that cleared the threshold, score-descending
	Matches []ScoredRecord `json:"matches"`

	// NoRelevantContent is true when nothing cleared the threshold
	NoRelevantContent bool `json:"no_relevant_content"`

	Threshold float64 `json:"threshold"`
	TookMs    int64   `json:"took_ms"`
}

// DocumentIDs returns the distinct document IDs among the matches, in match order
func (r *RetrievalResult) DocumentIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range r.Matches {
		id := m.Record.Metadata.DocumentID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
