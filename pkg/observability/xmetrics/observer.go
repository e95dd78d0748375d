package xmetrics

import (
	"context"
	"fmt"
	"time"
)

// Kind 跨度类型，对应 OTel SpanKind。
type Kind int

const (
	// KindInternal 进程内的重试序列（默认）。
	KindInternal Kind = iota
	// KindClient 每次尝试都是对外调用，例如 HTTP 探测。
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status 跨度结束状态。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 附加到跨度上的属性，Value 支持 string/bool/int/int64/float64/time.Duration，
// 其他类型按 fmt.Sprint 记录。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 开始跨度的参数。Component 和 Operation 同时作为指标维度，
// 取值应当有限（如 "xretry"/"probe"），不要放 URL 之类的高基数值。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// RetryEvent 第 Attempt 次尝试失败，等待 Delay 后重试。
type RetryEvent struct {
	Attempt   int
	Delay     time.Duration
	ErrorKind string
}

// Result 跨度结束时的结果。Status 为空时由 Err 推导；Attempts 为 0 时不记录尝试次数。
type Result struct {
	Status   Status
	Err      error
	Attempts int
	Attrs    []Attr
}

// Span 一次重试序列的观测。
type Span interface {
	// Retry 在每次退避等待前调用。
	Retry(event RetryEvent)
	// End 结束跨度，只有第一次调用生效。
	End(result Result)
}

// Observer 为每个重试序列开始一个 Span。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不记录任何内容。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 不记录任何内容。
type NoopSpan struct{}

func (NoopSpan) Retry(RetryEvent) {}

func (NoopSpan) End(Result) {}

// Start 用 observer 开始跨度；observer 为 nil 或返回 nil 时补成 Noop，
// 调用方拿到的 ctx 和 Span 一定非 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	spanCtx, span := observer.Start(ctx, opts)
	if spanCtx == nil {
		spanCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return spanCtx, span
}
