// Package xbreaker 基于 [sony/gobreaker/v2] 的熔断器，与 xretry 组合使用。
//
// # 熔断器状态
//
//   - StateClosed：正常放行，失败被统计
//   - StateOpen：直接拒绝，返回 ErrOpenState
//   - StateHalfOpen：放行有限探测请求
//
// # 熔断策略
//
// 内置 TripPolicy：[ConsecutiveFailures]、[FailureCount]、[FailureRatio]、
// [AnyOf] 和 [NeverTrip]；任意函数可经 [TripPolicyFunc] 适配。
// [Config] 可从配置文件加载并通过 [Config.Options] 转为选项。
//
// # 与重试组合
//
//   - [RetryThrough]：每次尝试都经过熔断器，重试中途可能触发熔断
//   - [RetryThenBreak]：重试期间不计数，只把最终结果记入熔断器
//
// 熔断器拒绝的请求返回 [BreakerError]，其 Retryable() 为 false，
// xretry 的分类器据此立即停止重试。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
