package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound 文档不存在
var ErrNotFound = errors.New("document not found")

type serverTimestamp struct{}

// MarshalJSON 未经存储层解析的占位符不应被持久化
func (serverTimestamp) MarshalJSON() ([]byte, error) {
	return nil, errors.New("server timestamp placeholder was not resolved")
}

// ServerTimestamp 字段占位符，写入时由存储层替换为存储时钟的当前时间
var ServerTimestamp = serverTimestamp{}

// Document 存储中的一条文档
type Document struct {
	ID         string
	Collection string
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DataTo 将文档内容解码到 dst
func (d *Document) DataTo(dst any) error {
	if err := json.Unmarshal(d.Data, dst); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Filter 等值过滤条件
type Filter struct {
	Field string
	Value any
}

// Where 构造等值过滤
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// DocumentStore 按集合组织的文档存储
// 集合名可以是子集合路径，如 "patients/{id}/sosAlerts"
type DocumentStore interface {
	// Create 新建文档，ID 由存储层分配
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set 以指定 ID 写入（覆盖）文档
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Get 读取文档，不存在时返回 ErrNotFound
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update 合并更新顶层字段，不存在时返回 ErrNotFound
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Query 按等值条件查询，结果按创建时间升序；不保证其他顺序
	Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
}

// Option 存储层选项
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock 替换存储时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator 替换 ID 生成器（测试用）
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ToFields 通过 JSON 标签把结构体转换为字段表
func ToFields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return fields, nil
}

// resolveServerTimestamps 返回替换了 ServerTimestamp 占位符的副本（含嵌套 map）
func resolveServerTimestamps(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case serverTimestamp:
			out[k] = now.UTC()
		case map[string]any:
			out[k] = resolveServerTimestamps(val, now)
		default:
			out[k] = v
		}
	}
	return out
}

// filterDocument 把过滤条件编码为 JSON 对象，用于包含匹配
func filterDocument(filters []Filter) ([]byte, error) {
	m := make(map[string]any, len(filters))
	for _, f := range filters {
		if f.Field == "" {
			return nil, errors.New("filter field is required")
		}
		m[f.Field] = f.Value
	}
	return json.Marshal(m)
}
