package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// ReplaceAttrFunc 属性替换函数，用于字段重命名、脱敏、过滤。
// 返回空 Key 的 Attr 会移除该属性。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Builder 日志配置构建器
//
// first-error-wins：遇到第一个配置错误后，Build 返回该错误。
// Builder 为一次性使用。
type Builder struct {
	output      io.Writer
	closer      io.Closer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	trace       bool
	replaceAttr ReplaceAttrFunc
	onError     func(error)
	err         error
}

// New 创建配置构建器：stderr、Info 级别、text 格式、注入追踪字段。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
		trace:    true,
	}
}

// SetOutput 设置日志输出目标，nil 会被忽略
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值使用 text
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetTrace 是否从 context 注入 trace_id/span_id，默认启用
func (b *Builder) SetTrace(enable bool) *Builder {
	b.trace = enable
	return b
}

// SetRotation 输出到按大小轮转的文件（lumberjack），cleanup 时关闭文件。
func (b *Builder) SetRotation(r Rotation) *Builder {
	lj, err := newLumberjack(r)
	if err != nil {
		b.setErr(err)
		return b
	}
	b.output = lj
	b.closer = lj
	return b
}

// SetReplaceAttr 设置属性替换函数
//
//	xlog.New().SetReplaceAttr(func(_ []string, a slog.Attr) slog.Attr {
//	    if a.Key == "token" {
//	        return slog.String(a.Key, "***")
//	    }
//	    return a
//	})
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// SetOnError 设置 Handler.Handle 失败时的回调，在写日志的 goroutine 中同步执行。
func (b *Builder) SetOnError(fn func(error)) *Builder {
	b.onError = fn
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger
//
// 返回的 cleanup 释放输出资源（如轮转文件），可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	if b.replaceAttr != nil {
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.trace {
		th, err := NewTraceHandler(handler)
		if err != nil {
			return nil, nil, err
		}
		handler = th
	}

	logger := &xlogger{
		handler:    handler,
		levelVar:   b.levelVar,
		onError:    b.onError,
		addSource:  b.addSource,
		errorCount: new(atomic.Uint64),
	}

	closer := b.closer
	var once sync.Once
	cleanup := func() error {
		var err error
		once.Do(func() {
			if closer != nil {
				err = closer.Close()
			}
		})
		return err
	}
	return logger, cleanup, nil
}
