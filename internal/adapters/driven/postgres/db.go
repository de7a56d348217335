package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

//go:embed schema.sql
var schema string

// schemaTables must all exist once InitSchema returns
var schemaTables = []string{"vector_stores", "vector_store_builds", "rag_tasks"}

// DB is the pool behind vector store snapshots, their build history and the
// fallback task table.
type DB struct {
	*sql.DB
}

// Config holds the connection string and pool limits. Zero limits keep the
// database/sql defaults.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig matches the service's configuration defaults
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

func (c Config) apply(db *sql.DB) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	if c.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(c.ConnMaxIdleTime)
	}
}

// Connect opens the pool and waits for the first successful ping
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: database url is required", domain.ErrInvalidConfig)
	}

	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	cfg.apply(sqlDB)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}

// InitSchema creates the vector store and task tables. It is idempotent and
// fails if any table is still missing afterwards.
func (db *DB) InitSchema(ctx context.Context) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	missing, err := db.missingTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify schema: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema incomplete, missing tables: %v", missing)
	}
	return nil
}

func (db *DB) missingTables(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL ORDER BY t`,
		pq.Array(schemaTables))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		missing = append(missing, name)
	}
	return missing, rows.Err()
}

// Ping reports whether the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back on error or panic
func (db *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeSnapshot renders a store snapshot for the vector_stores.data column
func encodeSnapshot(store *domain.SerializedStore) ([]byte, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store data is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal store: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses a vector_stores.data value. Anything unreadable is ErrCorruptStore.
func decodeSnapshot(documentID string, data []byte) (*domain.SerializedStore, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: document %s has an empty snapshot", domain.ErrCorruptStore, documentID)
	}
	var store domain.SerializedStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", domain.ErrCorruptStore, documentID, err)
	}
	return &store, nil
}
