package xbreaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// TripPolicy 熔断判定策略
//
// ReadyToTrip 返回 true 时熔断器从 Closed 转为 Open。
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略，默认 err == nil 即成功。
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// SuccessPolicyFunc 函数形式的 SuccessPolicy
type SuccessPolicyFunc func(err error) bool

// IsSuccessful 实现 SuccessPolicy
func (f SuccessPolicyFunc) IsSuccessful(err error) bool {
	return f(err)
}

// IgnoreCallerErrors 返回的策略把调用方自身导致的失败记为成功：
// 4xx 类客户端错误和 context 取消。只有网络、超时、5xx 等下游故障推动熔断。
func IgnoreCallerErrors() SuccessPolicy {
	return SuccessPolicyFunc(func(err error) bool {
		if err == nil {
			return true
		}
		switch xretry.Classify(err).Kind {
		case xretry.KindClient, xretry.KindCanceled:
			return true
		default:
			return false
		}
	})
}

// Breaker 熔断器执行器
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	interval      time.Duration
	bucketPeriod  time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)
	logger        xlog.Logger

	cb *gobreaker.CircuitBreaker[any]
}

// BreakerOption 熔断器配置选项
type BreakerOption func(*Breaker)

// WithTripPolicy 设置熔断判定策略，默认连续失败 5 次触发熔断。nil 被忽略。
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(b *Breaker) {
		b.successPolicy = p
	}
}

// WithTimeout 设置 Open 转 HalfOpen 的等待时间，默认 60 秒
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下统计计数的清零周期
//
// 默认 0：不清零，持续累积。同时设置 WithBucketPeriod 时为滑动窗口：
//
//	breaker := xbreaker.NewBreaker("inspections",
//	    xbreaker.WithInterval(60*time.Second),
//	    xbreaker.WithBucketPeriod(10*time.Second),
//	)
func WithInterval(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.interval = d
	}
}

// WithBucketPeriod 设置滑动窗口的桶周期，应能整除 Interval。
func WithBucketPeriod(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.bucketPeriod = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态下允许通过的最大请求数，默认 1
func WithMaxRequests(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调。回调中不要调用 State()/Counts()。
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = f
	}
}

// WithLogger 设置记录状态变化的 Logger，默认不记录。
func WithLogger(l xlog.Logger) BreakerOption {
	return func(b *Breaker) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBreaker 创建熔断器
//
// 默认：连续失败 5 次熔断，60 秒后半开，半开时放行 1 个请求。
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  ConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 1,
		logger:      xlog.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cb = gobreaker.NewCircuitBreaker[any](b.settings())
	return b
}

func (b *Breaker) settings() gobreaker.Settings {
	st := gobreaker.Settings{
		Name:         b.name,
		MaxRequests:  b.maxRequests,
		Interval:     b.interval,
		BucketPeriod: b.bucketPeriod,
		Timeout:      b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return b.tripPolicy.ReadyToTrip(counts)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn(context.Background(), "breaker state changed",
				xlog.Component("xbreaker"),
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if b.onStateChange != nil {
				b.onStateChange(name, from, to)
			}
		},
	}
	if b.successPolicy != nil {
		st.IsSuccessful = b.successPolicy.IsSuccessful
	}
	return st
}

// Do 执行受熔断器保护的操作
//
// ctx 已取消时直接返回 ctx.Err()，不计入熔断统计。
// 熔断器拒绝时返回 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute 执行受熔断器保护的操作（泛型版本）
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil {
		return zero, ErrNilBreaker
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, wrapBreakerError(err, b.name)
	}
	typed, _ := result.(T)
	return typed, nil
}

// State 返回熔断器当前状态
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Counts 返回当前统计计数
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}

// IsSuccessful 按 SuccessPolicy 判断结果，未设置时 err == nil 即成功。
func (b *Breaker) IsSuccessful(err error) bool {
	if b.successPolicy != nil {
		return b.successPolicy.IsSuccessful(err)
	}
	return err == nil
}
