package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// documentsSchema 文档表：collection + doc_id 唯一，内容为 JSONB
const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	doc_id     TEXT        NOT NULL,
	data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
`

// PostgresDocumentStore 基于 PostgreSQL JSONB 的文档存储
type PostgresDocumentStore struct {
	db     *sql.DB
	logger *zap.Logger
	opts   options
}

// NewPostgresDocumentStore 创建 Postgres 文档存储
func NewPostgresDocumentStore(db *sql.DB, logger *zap.Logger, opts ...Option) *PostgresDocumentStore {
	return &PostgresDocumentStore{
		db:     db,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// EnsureSchema 创建 documents 表（幂等）
func (s *PostgresDocumentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return fmt.Errorf("failed to ensure documents schema: %w", err)
	}
	return nil
}

// Create 新建文档
func (s *PostgresDocumentStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("collection is required")
	}

	now := s.opts.now().UTC()
	payload, err := json.Marshal(resolveServerTimestamps(data, now))
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	id := s.opts.newID()
	query := `
		INSERT INTO documents (collection, doc_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(payload), now); err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	s.logger.Debug("Document created",
		zap.String("collection", collection),
		zap.String("doc_id", id),
	)
	return id, nil
}

// Set 以指定 ID 写入文档（存在则覆盖内容）
func (s *PostgresDocumentStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if collection == "" || id == "" {
		return fmt.Errorf("collection and id are required")
	}

	now := s.opts.now().UTC()
	payload, err := json.Marshal(resolveServerTimestamps(data, now))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, doc_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(payload), now); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get 读取单个文档
func (s *PostgresDocumentStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT doc_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1
		  AND doc_id = $2
	`

	doc := &Document{Collection: collection}
	var data []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	doc.Data = data
	return doc, nil
}

// Update 合并更新顶层字段（JSONB ||）
func (s *PostgresDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	now := s.opts.now().UTC()
	patch, err := json.Marshal(resolveServerTimestamps(fields, now))
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb,
		    updated_at = $4
		WHERE collection = $1
		  AND doc_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, collection, id, string(patch), now)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// Query 按等值条件查询（JSONB @> 包含匹配）
func (s *PostgresDocumentStore) Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	contains, err := filterDocument(filters)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT doc_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1
		  AND data @> $2::jsonb
		ORDER BY created_at ASC, doc_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, collection, string(contains))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{Collection: collection}
		var data []byte
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&doc.ID, &data, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = data
		doc.CreatedAt = createdAt
		doc.UpdatedAt = updatedAt
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, nil
}
