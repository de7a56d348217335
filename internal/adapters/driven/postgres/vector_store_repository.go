package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStoreRepository = (*VectorStoreRepository)(nil)

// VectorStoreRepository implements driven.VectorStoreRepository using PostgreSQL.
// Each document has one row holding its serialized store as JSONB.
type VectorStoreRepository struct {
	db *DB
}

// NewVectorStoreRepository creates a new VectorStoreRepository
func NewVectorStoreRepository(db *DB) *VectorStoreRepository {
	return &VectorStoreRepository{db: db}
}

const vectorStoreInfoColumns = `document_id, build_id, embedding_model, dimensions, record_count, created_at, updated_at`

// Replace upserts the document's snapshot and records the build, in one transaction
func (r *VectorStoreRepository) Replace(ctx context.Context, store *domain.StoredVectorStore) error {
	if store == nil || store.DocumentID == "" || store.BuildID == "" {
		return fmt.Errorf("%w: document id and build id are required", domain.ErrInvalidInput)
	}
	data, err := encodeSnapshot(store.Data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	store.UpdatedAt = now

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vector_stores (document_id, build_id, embedding_model, dimensions, record_count, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (document_id) DO UPDATE SET
				build_id = EXCLUDED.build_id,
				embedding_model = EXCLUDED.embedding_model,
				dimensions = EXCLUDED.dimensions,
				record_count = EXCLUDED.record_count,
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at
		`,
			store.DocumentID,
			store.BuildID,
			store.EmbeddingModel,
			store.Dimensions,
			store.RecordCount,
			data,
			store.CreatedAt,
			store.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert vector store: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_store_builds (build_id, document_id, embedding_model, dimensions, record_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			store.BuildID,
			store.DocumentID,
			store.EmbeddingModel,
			store.Dimensions,
			store.RecordCount,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to record build: %w", err)
		}
		return nil
	})
}

// Get retrieves a document's store with its records
func (r *VectorStoreRepository) Get(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	query := `SELECT ` + vectorStoreInfoColumns + `, data FROM vector_stores WHERE document_id = $1`
	return scanStoredVectorStore(r.db.QueryRowContext(ctx, query, documentID), true)
}

// GetMany retrieves stores for several documents, skipping the missing ones
func (r *VectorStoreRepository) GetMany(ctx context.Context, documentIDs []string) ([]*domain.StoredVectorStore, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + vectorStoreInfoColumns + `, data FROM vector_stores WHERE document_id = ANY($1) ORDER BY document_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(documentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*domain.StoredVectorStore
	for rows.Next() {
		store, err := scanStoredVectorStore(rows, true)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

// GetInfo retrieves store metadata without loading records
func (r *VectorStoreRepository) GetInfo(ctx context.Context, documentID string) (*domain.StoredVectorStore, error) {
	query := `SELECT ` + vectorStoreInfoColumns + ` FROM vector_stores WHERE document_id = $1`
	return scanStoredVectorStore(r.db.QueryRowContext(ctx, query, documentID), false)
}

// List returns metadata of all stores, most recently updated first
func (r *VectorStoreRepository) List(ctx context.Context, limit, offset int) ([]*domain.StoredVectorStore, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + vectorStoreInfoColumns + ` FROM vector_stores ORDER BY updated_at DESC, document_id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*domain.StoredVectorStore
	for rows.Next() {
		store, err := scanStoredVectorStore(rows, false)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

// Delete removes a document's store. Build history is kept.
func (r *VectorStoreRepository) Delete(ctx context.Context, documentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vector_stores WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStoredVectorStore(row rowScanner, withData bool) (*domain.StoredVectorStore, error) {
	var store domain.StoredVectorStore
	var data []byte

	dest := []any{
		&store.DocumentID,
		&store.BuildID,
		&store.EmbeddingModel,
		&store.Dimensions,
		&store.RecordCount,
		&store.CreatedAt,
		&store.UpdatedAt,
	}
	if withData {
		dest = append(dest, &data)
	}

	err := row.Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if withData {
		if store.Data, err = decodeSnapshot(store.DocumentID, data); err != nil {
			return nil, err
		}
	}
	return &store, nil
}
