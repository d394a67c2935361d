package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// MemoryDocumentStore 内存文档存储（未启用数据库时使用，也用于测试）
// 数据以 JSON 形式保存，读写行为与 Postgres 实现一致
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]*memoryDoc // collection -> id -> doc
	opts options
}

type memoryDoc struct {
	data      map[string]any
	createdAt time.Time
	updatedAt time.Time
}

func NewMemoryDocumentStore(opts ...Option) *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs: map[string]map[string]*memoryDoc{},
		opts: buildOptions(opts),
	}
}

func (s *MemoryDocumentStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := s.opts.newID()
	if err := s.write(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryDocumentStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return s.write(ctx, collection, id, data, true)
}

func (s *MemoryDocumentStore) write(ctx context.Context, collection, id string, data map[string]any, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if collection == "" || id == "" {
		return fmt.Errorf("collection and id are required")
	}

	now := s.opts.now()
	normalized, err := normalize(resolveServerTimestamps(data, now))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.docs[collection]
	if !ok {
		col = map[string]*memoryDoc{}
		s.docs[collection] = col
	}
	if existing, ok := col[id]; ok {
		if !overwrite {
			return fmt.Errorf("document %s/%s already exists", collection, id)
		}
		existing.data = normalized
		existing.updatedAt = now
		return nil
	}
	col[id] = &memoryDoc{data: normalized, createdAt: now, updatedAt: now}
	return nil
}

func (s *MemoryDocumentStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return toDocument(collection, id, doc)
}

func (s *MemoryDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.opts.now()
	patch, err := normalize(resolveServerTimestamps(fields, now))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	merged := make(map[string]any, len(doc.data)+len(patch))
	for k, v := range doc.data {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	doc.data = merged
	doc.updatedAt = now
	return nil
}

func (s *MemoryDocumentStore) Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := filterDocument(filters)
	if err != nil {
		return nil, err
	}
	want := map[string]any{}
	if err := json.Unmarshal(raw, &want); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for id, doc := range s.docs[collection] {
		if !matches(doc.data, want) {
			continue
		}
		d, err := toDocument(collection, id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func matches(data, want map[string]any) bool {
	for k, v := range want {
		if !reflect.DeepEqual(data[k], v) {
			return false
		}
	}
	return true
}

func normalize(fields map[string]any) (map[string]any, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

func toDocument(collection, id string, doc *memoryDoc) (*Document, error) {
	b, err := json.Marshal(doc.data)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:         id,
		Collection: collection,
		Data:       b,
		CreatedAt:  doc.createdAt,
		UpdatedAt:  doc.updatedAt,
	}, nil
}
