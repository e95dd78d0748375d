package xretry

import "context"

// Handlers RetryAsync 的回调集合。
//
// OnSuccess 与 OnError 恰好有一个被调用，且只调用一次；为 nil 的回调被跳过。
// OnRetrying 在每次退避等待之前调用，参数为刚刚失败的尝试序号（从 1 开始）。
type Handlers[T any] struct {
	OnSuccess  func(value T)
	OnError    func(err *ClassifiedError)
	OnRetrying func(attempt int)
}

// RetryAsync 在新 goroutine 中执行 Retry，并把结果分发给 h。
//
// 返回的 channel 在结果分发完成后关闭，调用方可以等待它，也可以忽略。
// 所有回调都在该 goroutine 中执行。
func RetryAsync[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg Config, h Handlers[T], opts ...Option) <-chan struct{} {
	done := make(chan struct{})
	if h.OnRetrying != nil {
		opts = append(append([]Option(nil), opts...), WithOnRetry(func(attempt int, _ *ClassifiedError) {
			h.OnRetrying(attempt)
		}))
	}

	go func() {
		defer close(done)
		res := Retry(ctx, op, cfg, opts...)
		if res.OK() {
			if h.OnSuccess != nil {
				h.OnSuccess(res.Value())
			}
			return
		}
		if h.OnError != nil {
			h.OnError(res.Err())
		}
	}()
	return done
}
