package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 key。
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
	KeyDelay      = "delay"
	KeyErrorKind  = "error_kind"
	KeyStatusCode = "status_code"
	KeyURL        = "url"
	KeyPolicy     = "policy"
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
)

// Err 创建错误属性，nil 返回空属性（被 slog 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "sync failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5s"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Attempt 创建尝试序号属性（从 1 开始）
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Delay 创建退避延迟属性
func Delay(d time.Duration) slog.Attr {
	return slog.String(KeyDelay, d.String())
}

// ErrorKind 创建错误分类属性
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// StatusCode 创建 HTTP 状态码属性
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// URL 创建请求地址属性，调用方负责脱敏
func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

// Policy 创建重试策略名属性
func Policy(name string) slog.Attr {
	return slog.String(KeyPolicy, name)
}
