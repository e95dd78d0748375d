package xlog

import (
	"context"
	"log/slog"
)

// Logger 以 context 为第一个参数的结构化日志接口。
// ctx 中有 OTel span 且开启了 SetTrace 时，日志带 trace_id/span_id。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 派生带固定属性的 Logger，与父级共享级别。
	With(attrs ...slog.Attr) Logger
	// WithGroup 派生把后续属性放入分组的 Logger。
	WithGroup(name string) Logger
}

// Leveler 运行时调整级别。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	// Enabled 在构造代价高的属性前判断级别是否输出。
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 是 Builder.Build 的返回类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}
