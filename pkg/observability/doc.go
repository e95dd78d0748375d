// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持 trace 注入和文件轮转
//   - xmetrics: 统一的追踪和指标接口，默认实现基于 OpenTelemetry
package observability
