// Package xlog 基于 log/slog 的结构化日志。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation(xlog.Rotation{Filename: "/var/log/xretryctl.log"}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Builder 采用 first-error-wins：第一个配置错误在 Build 时返回。
//
// # 追踪字段
//
// 默认启用 [TraceHandler]：ctx 中存在有效的 OpenTelemetry span 时，
// 自动注入 trace_id 和 span_id。
//
// # 文件轮转
//
// [Builder.SetRotation] 使用 lumberjack 按文件大小轮转，零值字段使用
// DefaultMaxSizeMB / DefaultMaxBackups / DefaultMaxAgeDays。
//
// # 便捷属性
//
// [Err]、[Duration]、[Component]、[Operation]、[Attempt]、[Delay]、
// [ErrorKind]、[StatusCode]、[URL]、[Policy]。
package xlog
