package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// QueryRequest selects the document stores to search and how to filter matches
type QueryRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
	TopK        int      `json:"top_k,omitempty"`

	// Threshold overrides the configured minimum score when non-nil
	Threshold *float64 `json:"threshold,omitempty"`
}

// AskRequest is a user question answered from the given documents
type AskRequest struct {
	QueryRequest
	History []domain.ChatMessage `json:"history,omitempty"`
}

// AskResponse carries the grounded answer and the retrieval it was based on
type AskResponse struct {
	Answer    string                  `json:"answer"`
	Retrieval *domain.RetrievalResult `json:"retrieval"`
}

// RAGService is the entry point of the retrieval pipeline
type RAGService interface {
	// BuildVectorStoreForDocument turns raw text into a serialized store without persisting it
	BuildVectorStoreForDocument(ctx context.Context, text, documentID string) (*domain.SerializedStore, error)

	// IndexDocument builds and persists the document's store, replacing any previous one
	IndexDocument(ctx context.Context, documentID, text string) (*domain.StoredVectorStore, error)

	// DeleteDocument drops the document's persisted store
	DeleteDocument(ctx context.Context, documentID string) error

	// GetDocumentStore returns store metadata without records
	GetDocumentStore(ctx context.Context, documentID string) (*domain.StoredVectorStore, error)

	// AnswerQuery merges the given serialized stores and retrieves context for the query
	AnswerQuery(ctx context.Context, query string, stores []*domain.SerializedStore, k int, threshold float64) (*domain.RetrievalResult, error)

	// Query retrieves context from persisted document stores
	Query(ctx context.Context, req QueryRequest) (*domain.RetrievalResult, error)

	// Ask retrieves context and asks the chat model to answer from it
	Ask(ctx context.Context, req AskRequest) (*AskResponse, error)
}

// TitleService names chats from their first message
type TitleService interface {
	// GenerateTitle never fails; on model errors it returns a truncated form of message
	GenerateTitle(ctx context.Context, message string) string
}
