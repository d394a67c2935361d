package location

import (
	"context"
	"errors"
	"time"

	"wisefido-sos/internal/domain"
)

// Accuracy 定位精度提示
type Accuracy string

const (
	AccuracyLow      Accuracy = "low"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyHigh     Accuracy = "high"
)

// ParseAccuracy 解析精度，未知值回落到 low
func ParseAccuracy(s string) Accuracy {
	switch Accuracy(s) {
	case AccuracyBalanced, AccuracyHigh:
		return Accuracy(s)
	default:
		return AccuracyLow
	}
}

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaximumAge = 5 * time.Minute
	DefaultWait       = 10 * time.Second
)

// ErrNoFix 提供方没有给出位置
var ErrNoFix = errors.New("location unavailable")

// Options 传给定位提供方的提示：低精度、长超时、容忍旧位置
type Options struct {
	Accuracy   Accuracy
	Timeout    time.Duration
	MaximumAge time.Duration
}

// DefaultOptions 默认定位选项
func DefaultOptions() Options {
	return Options{
		Accuracy:   AccuracyLow,
		Timeout:    DefaultTimeout,
		MaximumAge: DefaultMaximumAge,
	}
}

func (o Options) withDefaults() Options {
	if o.Accuracy == "" {
		o.Accuracy = AccuracyLow
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaximumAge <= 0 {
		o.MaximumAge = DefaultMaximumAge
	}
	return o
}

// Callback 提供方回调：成功时 loc 非空，失败时 err 非空
// 提供方可能在 Locate 返回前同步回调，也可能多次回调；只有第一次生效
type Callback func(loc *domain.Location, err error)

// Provider 异步定位提供方
// Locate 立即返回一个 stop 函数，用于取消后续的位置更新
type Provider interface {
	Locate(ctx context.Context, target string, opts Options, cb Callback) (stop func())
}

// ProviderFunc 函数适配器
type ProviderFunc func(ctx context.Context, target string, opts Options, cb Callback) func()

func (f ProviderFunc) Locate(ctx context.Context, target string, opts Options, cb Callback) func() {
	return f(ctx, target, opts, cb)
}
