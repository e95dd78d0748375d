package xrun

import (
	"context"
	"errors"
	"time"

	"github.com/Solosh94/a1tools-sub006/pkg/resilience/xretry"
)

// Ticker 每隔 interval 执行一次 fn，immediate 为 true 时启动后先执行一次。
// fn 返回错误时任务结束；ctx 取消时返回 ctx.Err()。
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// WaitForDone 阻塞到 ctx 取消，用于让 Group 保持运行。
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}

// Supervise 运行 fn，fn 失败时按 cfg 退避后重启。
//
// fn 返回 nil 时任务结束。永久性错误（xretry.NewPermanentError）不重启；
// 其余错误一律重启，直到 cfg.MaxAttempts 用尽，此时返回 *xretry.ClassifiedError。
// ctx 取消时返回 ctx.Err()。opts 追加在默认选项之后，可覆盖重试判断。
func Supervise(cfg xretry.Config, fn func(ctx context.Context) error, opts ...xretry.Option) func(ctx context.Context) error {
	all := append([]xretry.Option{
		xretry.WithName("supervise"),
		xretry.WithShouldRetry(func(err error) bool {
			var pe *xretry.PermanentError
			return !errors.As(err, &pe) && !errors.Is(err, context.Canceled)
		}),
	}, opts...)

	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		err := xretry.Exec(ctx, fn, cfg, all...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
}
