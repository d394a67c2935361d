package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-sos/internal/domain"

	"go.uber.org/zap"
)

// Outcome 一次定位的结果分类（用于指标）
type Outcome string

const (
	OutcomeFix         Outcome = "fix"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeUnavailable Outcome = "unavailable"
)

var errWaitElapsed = errors.New("location wait elapsed")

// Acquirer 有界等待的定位获取，永不返回错误
type Acquirer struct {
	provider    Provider
	logger      *zap.Logger
	defaultWait time.Duration
	observe     func(Outcome)
}

// AcquirerOption Acquirer 选项
type AcquirerOption func(*Acquirer)

// WithOutcomeObserver 每次获取结束时回调结果分类
func WithOutcomeObserver(fn func(Outcome)) AcquirerOption {
	return func(a *Acquirer) { a.observe = fn }
}

// NewAcquirer 创建定位获取器；provider 为 nil 时每次都返回 nil
func NewAcquirer(provider Provider, logger *zap.Logger, defaultWait time.Duration, opts ...AcquirerOption) *Acquirer {
	if defaultWait <= 0 {
		defaultWait = DefaultWait
	}
	a := &Acquirer{
		provider:    provider,
		logger:      logger,
		defaultWait: defaultWait,
		observe:     func(Outcome) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type settlement struct {
	loc *domain.Location
	err error
}

// Acquire 在 maxWait 内获取 target 的位置，超时、出错、坐标无效或 ctx 取消时返回 nil
// maxWait <= 0 时使用默认等待时长
func (a *Acquirer) Acquire(ctx context.Context, target string, maxWait time.Duration, opts Options) *domain.Location {
	if a.provider == nil {
		a.observe(OutcomeUnavailable)
		return nil
	}
	if maxWait <= 0 {
		maxWait = a.defaultWait
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 第一次结算写入 done，之后的结算全部丢弃
	done := make(chan settlement, 1)
	var once sync.Once
	settle := func(s settlement) {
		once.Do(func() { done <- s })
	}

	// 计时器先于提供方启动，即使 Locate 本身阻塞也能按时返回
	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	stopCh := make(chan func(), 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				settle(settlement{err: fmt.Errorf("location provider panicked: %v", r)})
				stopCh <- nil
			}
		}()
		stopCh <- a.provider.Locate(ctx, target, opts, func(loc *domain.Location, err error) {
			settle(settlement{loc: loc, err: err})
		})
	}()

	var s settlement
	select {
	case s = <-done:
		timer.Stop()
	case <-timer.C:
		settle(settlement{err: errWaitElapsed})
		s = <-done
	case <-ctx.Done():
		settle(settlement{err: ctx.Err()})
		s = <-done
	}
	release(stopCh)

	return a.finish(target, maxWait, s)
}

func (a *Acquirer) finish(target string, maxWait time.Duration, s settlement) *domain.Location {
	switch {
	case errors.Is(s.err, errWaitElapsed):
		a.logger.Warn("Location wait elapsed, dispatching without location",
			zap.String("target", target),
			zap.Duration("max_wait", maxWait),
		)
		a.observe(OutcomeTimeout)
		return nil
	case errors.Is(s.err, context.Canceled), errors.Is(s.err, context.DeadlineExceeded):
		a.observe(OutcomeCancelled)
		return nil
	case s.err != nil:
		a.logger.Warn("Location provider failed",
			zap.String("target", target),
			zap.Error(s.err),
		)
		a.observe(OutcomeError)
		return nil
	case s.loc == nil:
		a.logger.Warn("Location provider returned no fix", zap.String("target", target))
		a.observe(OutcomeError)
		return nil
	case !s.loc.Valid():
		a.logger.Warn("Location provider returned invalid coordinates",
			zap.String("target", target),
			zap.Float64("latitude", s.loc.Latitude),
			zap.Float64("longitude", s.loc.Longitude),
		)
		a.observe(OutcomeInvalid)
		return nil
	}

	loc := *s.loc
	a.observe(OutcomeFix)
	return &loc
}

// release 停止提供方的后续更新；Locate 仍未返回时在后台等待
func release(stopCh <-chan func()) {
	select {
	case stop := <-stopCh:
		if stop != nil {
			stop()
		}
	default:
		go func() {
			if stop := <-stopCh; stop != nil {
				stop()
			}
		}()
	}
}
