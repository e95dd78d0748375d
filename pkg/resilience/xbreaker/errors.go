package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// errFailedByPolicy SuccessPolicy 把 nil error 判定为失败时上报给熔断器的占位错误。
var errFailedByPolicy = errors.New("xbreaker: operation marked as failed by success policy")

// 参数校验错误
var (
	// ErrNilBreaker 传入的 Breaker 为 nil
	ErrNilBreaker = errors.New("xbreaker: breaker cannot be nil")

	// ErrNilRetryThenBreak 传入的 RetryThenBreak 为 nil
	ErrNilRetryThenBreak = errors.New("xbreaker: retry-then-break cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")

	// ErrInvalidConfig 熔断配置非法
	ErrInvalidConfig = errors.New("xbreaker: invalid config")
)

// BreakerError 熔断器拒绝请求的错误
//
// 包装 ErrOpenState 或 ErrTooManyRequests。Retryable() 恒为 false，
// 熔断器打开后 xretry 立即停止退避重试。
type BreakerError struct {
	Err   error  // ErrOpenState 或 ErrTooManyRequests
	Name  string // 熔断器名称
	State State  // 拒绝时的状态
}

// Error 实现 error 接口
func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

// Unwrap 返回原生 gobreaker 错误
func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 恒为 false
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapBreakerError 只包装直接返回的 gobreaker sentinel error。
//
// 已经是 BreakerError 的错误原样返回，嵌套熔断器时保留内层来源。
// 状态由错误类型推导，不回查 State()：Execute 返回后状态可能已变化。
func wrapBreakerError(err error, name string) error {
	if err == nil {
		return nil
	}

	var be *BreakerError
	if errors.As(err, &be) {
		return err
	}

	switch err { //nolint:errorlint // 只匹配 gobreaker 直接返回的 sentinel
	case gobreaker.ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case gobreaker.ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	}
	return err
}

// IsOpen 报告 err 是否因熔断器打开被拒绝。
//
//	v, err := xbreaker.Execute(ctx, breaker, fetch)
//	if xbreaker.IsOpen(err) {
//	    return cached, nil
//	}
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// IsTooManyRequests 报告 err 是否因半开状态请求过多被拒绝。
func IsTooManyRequests(err error) bool {
	return errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsBreakerError 报告 err 是否为熔断器拒绝（而非业务错误）。
func IsBreakerError(err error) bool {
	return IsOpen(err) || IsTooManyRequests(err)
}
