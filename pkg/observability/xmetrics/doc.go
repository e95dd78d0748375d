// Package xmetrics 提供重试执行器使用的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 只定义最小化接口：Observer/Span/Attr。
// 执行器只依赖接口；默认实现基于 OpenTelemetry。
// 未配置 Observer 时使用空实现，不产生任何开销之外的分配。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xretry",
//		Operation: "fetch_schedule",
//	})
//	span.Retry(xmetrics.RetryEvent{Attempt: 1, Delay: time.Second, ErrorKind: "server"})
//	span.End(xmetrics.Result{Err: err, Attempts: 2})
//
// # 指标命名
//
//   - xretry.operation.total：重试序列数，属性 component / operation / status
//   - xretry.operation.duration：重试序列总耗时（秒，含退避等待）
//   - xretry.operation.attempts：每个序列的尝试次数
//   - xretry.retry.total：重试次数，属性 component / operation / error_kind
//
// 每次重试同时在 span 上记录一个 "retry" 事件。
package xmetrics
