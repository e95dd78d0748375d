package xbreaker

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// RetryThrough 每次重试尝试都经过熔断器。
//
// 每次尝试的结果都计入熔断统计；重试过程中熔断器打开后，
// 下一次尝试得到 *BreakerError（不可重试），序列立即结束。
// 与 RetryThenBreak 的区别：后者重试期间不计数，只记录最终结果。
//
//	breaker := xbreaker.NewBreaker("inspections")
//	res := xbreaker.RetryThrough(ctx, breaker, fetch, xretry.Standard())
func RetryThrough[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error), cfg xretry.Config, opts ...xretry.Option) xretry.Result[T] {
	if op == nil {
		return xretry.Retry[T](ctx, nil, cfg, opts...)
	}
	if b == nil {
		return xretry.Retry(ctx, func(context.Context) (T, error) {
			var zero T
			return zero, xretry.NewPermanentError(ErrNilBreaker)
		}, cfg, opts...)
	}
	return xretry.Retry(ctx, func(ctx context.Context) (T, error) {
		return Execute(ctx, b, op)
	}, cfg, opts...)
}

// ExecThrough 是 RetryThrough 的无返回值版本。
func ExecThrough(ctx context.Context, b *Breaker, op func(ctx context.Context) error, cfg xretry.Config, opts ...xretry.Option) error {
	if op == nil {
		return xretry.Exec(ctx, nil, cfg, opts...)
	}
	_, err := RetryThrough(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, cfg, opts...).Unwrap()
	return err
}

// RetryThenBreak 先重试后熔断
//
// 执行前检查熔断器，打开时直接拒绝；重试期间的中间失败不计入统计，
// 只有整个重试序列的最终结果记入熔断器。
type RetryThenBreak struct {
	breaker *Breaker
	tscb    *gobreaker.TwoStepCircuitBreaker[any]
}

// NewRetryThenBreak 按 NewBreaker 的选项创建先重试后熔断执行器。
func NewRetryThenBreak(name string, opts ...BreakerOption) *RetryThenBreak {
	b := NewBreaker(name, opts...)
	return &RetryThenBreak{
		breaker: b,
		tscb:    gobreaker.NewTwoStepCircuitBreaker[any](b.settings()),
	}
}

// Name 返回熔断器名称
func (rtb *RetryThenBreak) Name() string {
	return rtb.breaker.name
}

// State 返回熔断器当前状态
func (rtb *RetryThenBreak) State() State {
	return rtb.tscb.State()
}

// Counts 返回当前统计计数
func (rtb *RetryThenBreak) Counts() Counts {
	return rtb.tscb.Counts()
}

// Do 是 ExecuteRetryThenBreak 的无返回值版本。
func (rtb *RetryThenBreak) Do(ctx context.Context, op func(ctx context.Context) error, cfg xretry.Config, opts ...xretry.Option) error {
	if op == nil {
		return ErrNilFunc
	}
	_, err := ExecuteRetryThenBreak(ctx, rtb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, cfg, opts...)
	return err
}

// toResultError 把最终结果转为上报给 done 的错误：nil 表示成功。
func (rtb *RetryThenBreak) toResultError(err error) error {
	if rtb.breaker.IsSuccessful(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return errFailedByPolicy
}

// ExecuteRetryThenBreak 执行先重试后熔断的操作
//
// 熔断器拒绝时返回 *BreakerError，op 不会被调用；
// 否则返回 xretry 的结果，失败时 error 为 *xretry.ClassifiedError。
// op 中的 panic 由 xretry 转为不可重试的失败，同样计入熔断统计。
func ExecuteRetryThenBreak[T any](ctx context.Context, rtb *RetryThenBreak, op func(ctx context.Context) (T, error), cfg xretry.Config, opts ...xretry.Option) (T, error) {
	var zero T
	if rtb == nil {
		return zero, ErrNilRetryThenBreak
	}
	if op == nil {
		return zero, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	done, err := rtb.tscb.Allow()
	if err != nil {
		return zero, wrapBreakerError(err, rtb.breaker.name)
	}

	value, err := xretry.Do(ctx, op, cfg, opts...)
	done(rtb.toResultError(err))
	return value, err
}
