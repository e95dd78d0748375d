package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 熔断判定用的请求计数。
	Counts = gobreaker.Counts
	// State 熔断器状态。
	State = gobreaker.State
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// 熔断器拒绝请求时的原因，包装在 *BreakerError 中。
var (
	// ErrOpenState 熔断器已打开。
	ErrOpenState = gobreaker.ErrOpenState
	// ErrTooManyRequests 半开状态下探测请求已满。
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)
