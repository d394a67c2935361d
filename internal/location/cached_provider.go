package location

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wisefido-sos/internal/domain"
	"wisefido-sos/internal/store"

	"go.uber.org/zap"
)

const cacheWriteTimeout = 2 * time.Second

// cachedFix 最近一次成功定位
type cachedFix struct {
	Location domain.Location `json:"location"`
	At       time.Time       `json:"at"`
}

// CachedProvider 在 KV 中保存最近一次定位
// 缓存不超过 opts.MaximumAge 时直接返回，否则转给下游提供方并记录新位置
type CachedProvider struct {
	next   Provider
	kv     store.KV
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedProvider 创建带缓存的提供方
func NewCachedProvider(next Provider, kv store.KV, prefix string, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		kv:     kv,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

func (p *CachedProvider) key(target string) string {
	return p.prefix + target
}

func (p *CachedProvider) Locate(ctx context.Context, target string, opts Options, cb Callback) func() {
	if loc, ok := p.lookup(ctx, target, opts.MaximumAge); ok {
		cb(loc, nil)
		return func() {}
	}

	return p.next.Locate(ctx, target, opts, func(loc *domain.Location, err error) {
		cb(loc, err)
		if err == nil && loc.Valid() {
			p.remember(target, loc, opts.MaximumAge)
		}
	})
}

func (p *CachedProvider) lookup(ctx context.Context, target string, maxAge time.Duration) (*domain.Location, bool) {
	raw, err := p.kv.Get(ctx, p.key(target))
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			p.logger.Warn("Failed to read cached location", zap.String("target", target), zap.Error(err))
		}
		return nil, false
	}

	var fix cachedFix
	if err := json.Unmarshal([]byte(raw), &fix); err != nil {
		p.logger.Warn("Discarding malformed cached location", zap.String("target", target), zap.Error(err))
		if err := p.kv.Delete(ctx, p.key(target)); err != nil {
			p.logger.Warn("Failed to evict cached location", zap.String("target", target), zap.Error(err))
		}
		return nil, false
	}
	if maxAge > 0 && p.now().Sub(fix.At) > maxAge {
		return nil, false
	}
	if !fix.Location.Valid() {
		return nil, false
	}
	return &fix.Location, true
}

// remember 写缓存失败只记录日志；回调可能晚于请求上下文结束，所以使用独立超时
func (p *CachedProvider) remember(target string, loc *domain.Location, ttl time.Duration) {
	b, err := json.Marshal(cachedFix{Location: *loc, At: p.now().UTC()})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := p.kv.Set(ctx, p.key(target), string(b), ttl); err != nil {
		p.logger.Warn("Failed to cache location", zap.String("target", target), zap.Error(err))
	}
}
