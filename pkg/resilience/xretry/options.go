package xretry

import (
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xlog"
	"github.com/Solosh94/a1tools-sub006/pkg/observability/xmetrics"
)

// options 单次 Retry 调用的可选行为。
type options struct {
	shouldRetry func(err error) bool
	onRetry     []func(attempt int, err *ClassifiedError)
	classifier  Classifier
	random      RandomFunc
	timer       Timer
	name        string
	logger      xlog.Logger
	observer    xmetrics.Observer
	spanKind    xmetrics.Kind
}

// Option 执行器配置选项
type Option func(*options)

const defaultOperationName = "retry"

func buildOptions(opts []Option) *options {
	o := &options{
		classifier: DefaultClassifier,
		random:     randomFloat64,
		name:       defaultOperationName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithShouldRetry 用自定义判断覆盖分类器给出的可重试性。
// 错误类型（Kind）仍由分类器决定。nil 会被忽略。
func WithShouldRetry(fn func(err error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.shouldRetry = fn
		}
	}
}

// WithOnRetry 添加重试回调，在每次退避等待之前调用。
// attempt 为刚刚失败的尝试序号（从 1 开始）。多次设置会依次调用，nil 会被忽略。
func WithOnRetry(fn func(attempt int, err *ClassifiedError)) Option {
	return func(o *options) {
		if fn != nil {
			o.onRetry = append(o.onRetry, fn)
		}
	}
}

// WithClassifier 替换默认分类器。nil 会被忽略。
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithRandom 设置抖动随机源，返回值须在 [0, 1) 区间。nil 会被忽略。
func WithRandom(fn RandomFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.random = fn
		}
	}
}

// WithTimer 设置退避等待使用的计时器（主要用于测试）。nil 会被忽略。
func WithTimer(t Timer) Option {
	return func(o *options) {
		if t != nil {
			o.timer = t
		}
	}
}

// WithName 设置操作名称，用于日志和指标。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 启用日志：重试时记录 Debug，最终失败时记录 Warn。
// 默认不记录任何日志。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver 启用指标和追踪。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithSpanKind 设置跨度类型。op 每次尝试都是对外调用时用 xmetrics.KindClient，
// 默认 xmetrics.KindInternal。
func WithSpanKind(kind xmetrics.Kind) Option {
	return func(o *options) {
		o.spanKind = kind
	}
}
