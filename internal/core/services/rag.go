package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/vectorstore"
)

// Ensure ragService implements RAGService
var _ driving.RAGService = (*ragService)(nil)

// RAGServiceConfig holds optional collaborators and tuning for the RAG service
type RAGServiceConfig struct {
	Settings domain.RAGSettings

	// Lock serializes rebuilds of the same document across instances (optional)
	Lock    driven.DistributedLock
	LockTTL time.Duration

	// Cache holds merged session stores keyed by their builds (optional)
	Cache    driven.StoreCache
	CacheTTL time.Duration

	Logger *slog.Logger
}

// DefaultRAGServiceConfig returns defaults without lock or cache
func DefaultRAGServiceConfig() RAGServiceConfig {
	return RAGServiceConfig{
		Settings: domain.DefaultRAGSettings(),
		LockTTL:  10 * time.Minute,
		CacheTTL: 30 * time.Minute,
		Logger:   slog.Default(),
	}
}

// ragService implements the RAGService interface
type ragService struct {
	repo      driven.VectorStoreRepository
	services  *runtime.Services
	splitter  *postprocessors.Splitter
	retriever *Retriever
	config    RAGServiceConfig
	logger    *slog.Logger
}

// NewRAGService creates a new RAGService.
// AI services are looked up per call via runtime.Services.
func NewRAGService(repo driven.VectorStoreRepository, services *runtime.Services, config RAGServiceConfig) (driving.RAGService, error) {
	return newRAGService(repo, services, config)
}

func newRAGService(repo driven.VectorStoreRepository, services *runtime.Services, config RAGServiceConfig) (*ragService, error) {
	if err := config.Settings.Validate(); err != nil {
		return nil, err
	}

	splitterConfig := postprocessors.DefaultSplitterConfig()
	splitterConfig.ChunkSize = config.Settings.ChunkSize
	splitterConfig.Overlap = config.Settings.ChunkOverlap
	splitter, err := postprocessors.NewSplitter(splitterConfig)
	if err != nil {
		return nil, err
	}

	defaults := DefaultRAGServiceConfig()
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ragService{
		repo:      repo,
		services:  services,
		splitter:  splitter,
		retriever: NewRetriever(services, logger),
		config:    config,
		logger:    logger,
	}, nil
}

// BuildVectorStoreForDocument preprocesses, splits, embeds and serializes a document.
// Nothing is persisted; empty documents are rejected with ErrInvalidInput.
func (s *ragService) BuildVectorStoreForDocument(ctx context.Context, text, documentID string) (*domain.SerializedStore, error) {
	embedder, err := s.embedder()
	if err != nil {
		return nil, err
	}
	store, err := s.buildStore(ctx, embedder, text, documentID)
	if err != nil {
		return nil, err
	}
	return store.Serialize(), nil
}

func (s *ragService) buildStore(ctx context.Context, embedder driven.EmbeddingService, text, documentID string) (*vectorstore.Store, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	clean := postprocessors.Preprocess(text)
	if clean == "" {
		return nil, fmt.Errorf("%w: document %s has no text", domain.ErrInvalidInput, documentID)
	}

	chunks, err := s.splitter.Split(clean, domain.NewMetadata(documentID, nil))
	if err != nil {
		return nil, err
	}

	embeddings, err := s.embedChunks(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	return vectorstore.Build(chunks, embeddings)
}

// embedChunks embeds chunk texts in batches, keeping chunk order.
func (s *ragService) embedChunks(ctx context.Context, embedder driven.EmbeddingService, chunks []domain.Chunk) ([][]float32, error) {
	batchSize := s.config.Settings.EmbedBatchSize
	embeddings := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: embedded %d texts, got %d vectors", domain.ErrDimensionMismatch, len(texts), len(vectors))
		}
		embeddings = append(embeddings, vectors...)
	}
	return embeddings, nil
}

// IndexDocument builds the document's store and swaps it in as the current one.
// A failed build leaves the previous store untouched.
func (s *ragService) IndexDocument(ctx context.Context, documentID, text string) (*domain.StoredVectorStore, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	embedder, err := s.embedder()
	if err != nil {
		return nil, err
	}

	if s.config.Lock != nil {
		lockName := indexLockName(documentID)
		acquired, err := s.config.Lock.Acquire(ctx, lockName, s.config.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire index lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: document %s", domain.ErrIndexInProgress, documentID)
		}
		defer func() {
			if err := s.config.Lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
				s.logger.Warn("failed to release index lock", "document_id", documentID, "error", err)
			}
		}()
	}

	start := time.Now()
	store, err := s.buildStore(ctx, embedder, text, documentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stored := &domain.StoredVectorStore{
		DocumentID:     documentID,
		BuildID:        uuid.NewString(),
		EmbeddingModel: embedder.Model(),
		Dimensions:     store.Dimension(),
		RecordCount:    store.Len(),
		Data:           store.Serialize(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Replace(ctx, stored); err != nil {
		return nil, fmt.Errorf("persist vector store: %w", err)
	}

	s.logger.Info("document indexed",
		"document_id", documentID,
		"build_id", stored.BuildID,
		"records", stored.RecordCount,
		"dimensions", stored.Dimensions,
		"duration", time.Since(start))

	info := *stored
	info.Data = nil
	return &info, nil
}

// DeleteDocument drops the document's persisted store
func (s *ragService) DeleteDocument(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, documentID); err != nil {
		return err
	}
	s.logger.Info("document store deleted", "document_id", documentID)
	return nil
}

// GetDocumentStore returns store metadata
func (s *ragService) GetDocumentStore(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	return s.repo.GetInfo(ctx, documentID)
}

// AnswerQuery merges the given per-document stores into a fresh session store and retrieves from it.
func (s *ragService) AnswerQuery(ctx context.Context, query string, stores []*domain.SerializedStore, k int, threshold float64) (*domain.RetrievalResult, error) {
	embedder, err := s.embedder()
	if err != nil {
		return nil, err
	}

	loaded := make([]*vectorstore.Store, 0, len(stores))
	for i, snap := range stores {
		st, err := vectorstore.DeserializeWithDimension(snap, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("store %d: %w", i, err)
		}
		loaded = append(loaded, st)
	}

	merged, err := vectorstore.Merge(loaded...)
	if err != nil {
		return nil, err
	}
	return s.retriever.Retrieve(ctx, query, k, merged, threshold)
}

// Query retrieves context from the persisted stores of the requested documents.
// Documents without a store are skipped; if none has one the result is ErrStoreNotBuilt.
func (s *ragService) Query(ctx context.Context, req driving.QueryRequest) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	documentIDs := uniqueNonEmpty(req.DocumentIDs)
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one document id is required", domain.ErrInvalidInput)
	}

	k := req.TopK
	if k == 0 {
		k = s.config.Settings.TopK
	}
	threshold := s.config.Settings.SimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	embedder, err := s.embedder()
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetMany(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("load vector stores: %w", err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: none of %d documents is indexed", domain.ErrStoreNotBuilt, len(documentIDs))
	}
	if len(stored) < len(documentIDs) {
		s.logger.Warn("some documents have no vector store", "requested", len(documentIDs), "found", len(stored))
	}

	// Merge order is fixed by document id so rankings don't depend on request order
	sort.Slice(stored, func(i, j int) bool { return stored[i].DocumentID < stored[j].DocumentID })

	merged, err := s.sessionStore(ctx, stored, embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	return s.retriever.Retrieve(ctx, req.Query, k, merged, threshold)
}

// sessionStore returns the merged store for the given builds, from cache when possible.
func (s *ragService) sessionStore(ctx context.Context, stored []*domain.StoredVectorStore, dimension int) (*vectorstore.Store, error) {
	key := mergeCacheKey(stored)

	if s.config.Cache != nil {
		snap, err := s.config.Cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("merged store cache read failed", "error", err)
		case snap != nil:
			st, err := vectorstore.DeserializeWithDimension(snap, dimension)
			if err == nil {
				return st, nil
			}
			s.logger.Warn("discarding unusable cached merged store", "key", key, "error", err)
		}
	}

	loaded := make([]*vectorstore.Store, 0, len(stored))
	for _, sv := range stored {
		st, err := vectorstore.DeserializeWithDimension(sv.Data, dimension)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", sv.DocumentID, err)
		}
		loaded = append(loaded, st)
	}

	merged, err := vectorstore.Merge(loaded...)
	if err != nil {
		return nil, err
	}

	if s.config.Cache != nil {
		if err := s.config.Cache.Set(ctx, key, merged.Serialize(), s.config.CacheTTL); err != nil {
			s.logger.Warn("merged store cache write failed", "error", err)
		}
	}
	return merged, nil
}

// Ask answers a question from the retrieved context of the requested documents.
func (s *ragService) Ask(ctx context.Context, req driving.AskRequest) (*driving.AskResponse, error) {
	chat := s.services.ChatService()
	if chat == nil {
		return nil, fmt.Errorf("%w: chat service not configured", domain.ErrServiceUnavailable)
	}

	result, err := s.Query(ctx, req.QueryRequest)
	if err != nil {
		return nil, err
	}

	answer, err := chat.Complete(ctx, answerPrompt(req.Query, result, req.History), driven.ChatOptions{Temperature: 0.3})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &driving.AskResponse{
		Answer:    strings.TrimSpace(answer),
		Retrieval: result,
	}, nil
}

func (s *ragService) embedder() (driven.EmbeddingService, error) {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service not configured", domain.ErrServiceUnavailable)
	}
	return embedder, nil
}

func indexLockName(documentID string) string {
	return "rag:index:" + documentID
}

// mergeCacheKey identifies a merged store by the builds it contains.
// A rebuilt document gets a new build id, so stale entries are never hit.
func mergeCacheKey(stored []*domain.StoredVectorStore) string {
	h := sha256.New()
	for _, sv := range stored {
		h.Write([]byte(sv.DocumentID))
		h.Write([]byte{0})
		h.Write([]byte(sv.BuildID))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
