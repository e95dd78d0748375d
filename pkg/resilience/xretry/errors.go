package xretry

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// 参数与配置错误。
var (
	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xretry: function cannot be nil")

	// ErrInvalidConfig 重试策略违反不变量
	ErrInvalidConfig = errors.New("xretry: invalid config")

	// ErrUnknownPreset 未知的预置策略名称
	ErrUnknownPreset = errors.New("xretry: unknown preset")
)

// Kind 失败类型。
type Kind int

const (
	// KindUnknown 未能识别的错误（包括 panic），默认不可重试
	KindUnknown Kind = iota
	// KindNetwork 底层连接失败（拒绝连接、重置、DNS 等），默认可重试
	KindNetwork
	// KindTimeout 超时，默认可重试
	KindTimeout
	// KindServer 服务端错误（5xx 或等价的 gRPC 状态），默认可重试
	KindServer
	// KindClient 客户端错误（4xx 或等价的 gRPC 状态），默认不可重试
	KindClient
	// KindCanceled 调用方取消，不可重试
	KindCanceled
)

// String 返回 Kind 的小写名称，用于日志和指标属性。
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	case KindCanceled:
		return "canceled"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// defaultRetryable 返回 Kind 的默认可重试性。
func (k Kind) defaultRetryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// RetryableError 可重试错误接口
// 错误链中实现此接口的错误优先于默认分类规则
type RetryableError interface {
	error
	Retryable() bool
}

// ClassifiedError 分类后的失败。
// 每次尝试失败时构造一次，最后一次（或第一次不可重试的）保留在 Failure 结果中。
// Err 保留原始错误，便于诊断和 errors.Is/As。
// 作为操作的返回值再次进入分类器时，Retryable 字段与 RetryableError 一样具有优先级。
type ClassifiedError struct {
	Kind      Kind
	Retryable bool
	Err       error
}

// Error 实现 error 接口。
func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return "xretry: " + e.Kind.String() + " error"
	}
	return e.Err.Error()
}

// Unwrap 返回原始错误。
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// PermanentError 永久性错误（不应重试）
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func (e *PermanentError) Retryable() bool {
	return false
}

// TemporaryError 临时性错误（应该重试）
type TemporaryError struct {
	Err error
}

// NewTemporaryError 创建临时性错误
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error {
	return e.Err
}

func (e *TemporaryError) Retryable() bool {
	return true
}

// HTTPStatusCoder 携带 HTTP 状态码的错误。
// 分类器优先使用状态码，而不是匹配错误文本。
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError 表示 HTTP 响应状态码异常。
type StatusError struct {
	Code   int
	Method string
	URL    string
}

// Error 实现 error 接口。
func (e *StatusError) Error() string {
	text := http.StatusText(e.Code)
	if text == "" {
		text = "unexpected status"
	}
	if e.URL == "" {
		return fmt.Sprintf("http status %d %s", e.Code, text)
	}
	return fmt.Sprintf("%s %s: http status %d %s", e.Method, e.URL, e.Code, text)
}

// HTTPStatusCode 实现 HTTPStatusCoder。
func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// CheckResponse 对 4xx/5xx 响应返回 *StatusError，其他情况返回 nil。
// 不读取也不关闭响应体。
func CheckResponse(resp *http.Response) error {
	if resp == nil || resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	se := &StatusError{Code: resp.StatusCode}
	if resp.Request != nil {
		se.Method = resp.Request.Method
		if resp.Request.URL != nil {
			se.URL = resp.Request.URL.Redacted()
		}
	}
	return se
}

// PanicError 操作函数 panic 后恢复出的错误，不可重试。
type PanicError struct {
	Value any
}

// Error 实现 error 接口。
func (e *PanicError) Error() string {
	return fmt.Sprintf("xretry: operation panicked: %v", e.Value)
}

// Unwrap 当 panic 值本身是 error 时返回它。
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsRetryable 检查错误是否可重试（使用默认分类器）
// 规则：
//   - nil 错误：不需要重试（视为成功）
//   - 错误链中实现 RetryableError 接口：根据 Retryable() 返回值判断
//   - 其他错误：按默认分类规则判断
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}

// IsPermanent 检查错误是否为不可重试错误
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return !IsRetryable(err)
}
