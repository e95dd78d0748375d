package xretry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xmetrics"
)

// Retry 执行 op，失败时按 cfg 退避重试，直到成功、尝试次数用尽或遇到不可重试错误。
//
// Retry 从不 panic，也不返回 error：所有结果都以 Result 表示。
// op 的 panic 会被恢复为 *PanicError（不可重试）。
// ctx 在退避等待期间被取消时，返回 KindCanceled 的 Failure，Err 中保留最后一次错误。
// op 本身不会被中断，单次尝试的超时由 op 负责。
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg Config, opts ...Option) Result[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if op == nil {
		return failure[T](&ClassifiedError{Kind: KindUnknown, Err: ErrNilFunc}, 0)
	}

	o := buildOptions(opts)
	ex := &execution[T]{
		cfg:  cfg.normalize(),
		opts: o,
		op:   op,
	}
	ex.backoff = NewExponentialBackoff(ex.cfg, WithJitterSource(o.random))

	ctx, span := xmetrics.Start(ctx, o.observer, xmetrics.SpanOptions{
		Component: "xretry",
		Operation: o.name,
		Kind:      o.spanKind,
		Attrs:     []xmetrics.Attr{xmetrics.Int("max_attempts", ex.cfg.MaxAttempts)},
	})
	ex.ctx = ctx
	ex.span = span

	return ex.run()
}

// Do 与 Retry 相同，但以 (T, error) 返回结果。
// 失败时 error 的动态类型是 *ClassifiedError，与 Retry 的 Failure.Err() 相同。
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg Config, opts ...Option) (T, error) {
	return Retry(ctx, op, cfg, opts...).Unwrap()
}

// Exec 执行无返回值的操作，失败时返回 *ClassifiedError，成功返回 nil。
func Exec(ctx context.Context, op func(ctx context.Context) error, cfg Config, opts ...Option) error {
	if op == nil {
		return &ClassifiedError{Kind: KindUnknown, Err: ErrNilFunc}
	}
	_, err := Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, cfg, opts...)
	return err
}

// Wrap 返回带重试的 op，每次调用都是独立的重试序列。
func Wrap[T any](op func(ctx context.Context) (T, error), cfg Config, opts ...Option) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, op, cfg, opts...)
	}
}

// execution 单次 Retry 调用的状态，不在调用之间共享。
//
// 尝试计数和延迟由 execution 维护，onRetry 的 attempt 与延迟公式使用同一序号。
// retry-go 的回调都在调用 Do 的 goroutine 中串行执行。
type execution[T any] struct {
	ctx     context.Context
	cfg     Config
	opts    *options
	op      func(ctx context.Context) (T, error)
	backoff *ExponentialBackoff
	span    xmetrics.Span
	start   time.Time

	attempts int
	last     *ClassifiedError
	delay    time.Duration
	// terminal 为 true 表示序列因不可重试或次数用尽而结束，而非被取消
	terminal bool
}

func (ex *execution[T]) run() Result[T] {
	ex.start = time.Now()
	if err := ex.ctx.Err(); err != nil {
		return ex.finish(ex.canceled(err))
	}

	value, err := retry.NewWithData[T](ex.retryOptions()...).Do(ex.attempt)
	if err == nil {
		return ex.finish(success(value, ex.attempts))
	}
	if !ex.terminal {
		if ctxErr := ex.ctx.Err(); ctxErr != nil {
			return ex.finish(ex.canceled(ctxErr))
		}
	}
	last := ex.last
	if last == nil {
		last = ex.classify(err)
	}
	return ex.finish(failure[T](last, ex.attempts))
}

func (ex *execution[T]) retryOptions() []retry.Option {
	opts := make([]retry.Option, 0, 7)
	opts = append(opts,
		retry.Context(ex.ctx),
		retry.Attempts(uint(ex.cfg.MaxAttempts)),
		retry.RetryIf(ex.shouldContinue),
		retry.DelayType(func(_ uint, _ error, _ retry.DelayContext) time.Duration {
			return ex.delay
		}),
		retry.OnRetry(func(_ uint, _ error) {
			ex.notifyRetry()
		}),
		retry.LastErrorOnly(true),
	)
	if ex.opts.timer != nil {
		opts = append(opts, retry.WithTimer(ex.opts.timer))
	}
	return opts
}

// attempt 执行一次操作，恢复 panic 并分类失败。
func (ex *execution[T]) attempt() (value T, err error) {
	ex.attempts++
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = &PanicError{Value: r}
		}
		if err != nil {
			ex.last = ex.classify(err)
		}
	}()
	return ex.op(ex.ctx)
}

// classify 调用分类器并应用 shouldRetry 覆盖。
// panic 恢复出的错误始终不可重试。
func (ex *execution[T]) classify(err error) *ClassifiedError {
	ce := ex.opts.classifier.Classify(err)
	if ce == nil {
		ce = Classify(err)
	}
	if ex.opts.shouldRetry != nil {
		ce = &ClassifiedError{Kind: ce.Kind, Retryable: ex.opts.shouldRetry(err), Err: ce.Err}
	}
	var pe *PanicError
	if errors.As(err, &pe) && ce.Retryable {
		ce = &ClassifiedError{Kind: ce.Kind, Retryable: false, Err: ce.Err}
	}
	return ce
}

// shouldContinue 作为 retry-go 的 RetryIf：决定是否还有下一次尝试，并预先计算延迟。
func (ex *execution[T]) shouldContinue(error) bool {
	if ex.last == nil || !ex.last.Retryable || ex.attempts >= ex.cfg.MaxAttempts {
		ex.terminal = true
		return false
	}
	if ex.ctx.Err() != nil {
		return false
	}
	ex.delay = ex.backoff.NextDelay(ex.attempts)
	return true
}

func (ex *execution[T]) notifyRetry() {
	for _, fn := range ex.opts.onRetry {
		fn(ex.attempts, ex.last)
	}
	if ex.opts.logger != nil {
		ex.opts.logger.Debug(ex.ctx, "retrying",
			xlog.Operation(ex.opts.name),
			xlog.Attempt(ex.attempts),
			xlog.Delay(ex.delay),
			xlog.ErrorKind(ex.last.Kind.String()),
			xlog.Err(ex.last),
		)
	}
	ex.span.Retry(xmetrics.RetryEvent{
		Attempt:   ex.attempts,
		Delay:     ex.delay,
		ErrorKind: ex.last.Kind.String(),
	})
}

// canceled 构造取消结果，Err 同时包含 ctx 错误和最后一次尝试的错误。
func (ex *execution[T]) canceled(ctxErr error) Result[T] {
	err := ctxErr
	if ex.last != nil {
		err = errors.Join(ctxErr, ex.last.Err)
	}
	return failure[T](&ClassifiedError{Kind: KindCanceled, Retryable: false, Err: err}, ex.attempts)
}

func (ex *execution[T]) finish(res Result[T]) Result[T] {
	ce := res.Err()
	if ce != nil && ex.opts.logger != nil {
		ex.opts.logger.Warn(ex.ctx, "retry failed",
			xlog.Operation(ex.opts.name),
			slog.Int("attempts", res.Attempts()),
			xlog.ErrorKind(ce.Kind.String()),
			xlog.Duration(time.Since(ex.start)),
			xlog.Err(ce),
		)
	}
	var spanErr error
	if ce != nil {
		spanErr = ce
	}
	ex.span.End(xmetrics.Result{
		Err:      spanErr,
		Attempts: res.Attempts(),
		Attrs:    []xmetrics.Attr{xmetrics.String("error_kind", kindLabel(ce))},
	})
	return res
}

func kindLabel(ce *ClassifiedError) string {
	if ce == nil {
		return "none"
	}
	return ce.Kind.String()
}
