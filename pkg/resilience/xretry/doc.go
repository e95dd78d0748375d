// Package xretry 提供带指数退避、抖动和错误分类的重试执行器。
//
// # 设计理念
//
// xretry 是对调用方提供的操作函数做控制流组合：
//   - Config：不可变的重试策略（次数、初始延迟、乘数、上限、抖动）
//   - Classifier：把每次失败的原始错误归类为 ClassifiedError，并决定是否可重试
//   - Result：重试序列的结果，Success 与 Failure 二选一
//
// 底层使用 [avast/retry-go/v5] 驱动重试循环，xretry 负责尝试计数、
// 延迟计算和错误分类，保证语义与 Config 严格一致。
//
// # 预置策略
//
//   - Quick()：2 次，500ms 起，1.5 倍，上限 2s
//   - Standard()：3 次，1s 起，2 倍，上限 10s
//   - Aggressive()：5 次，2s 起，2 倍，上限 30s
//
// 三者都启用抖动。预置策略以函数形式返回值拷贝，调用方修改不会影响其他调用方。
// 未指定策略时使用 DefaultConfig()（3 次，1s 起，2 倍，上限 30s）。
//
// # 使用方式
//
// 结果对象风格：
//
//	res := xretry.Retry(ctx, fetch, xretry.Standard())
//	if !res.OK() {
//	    log.Printf("失败（%d 次尝试）: %v", res.Attempts(), res.Err())
//	}
//
// 错误返回风格：
//
//	v, err := xretry.Do(ctx, fetch, xretry.Quick())
//
// 回调风格：
//
//	done := xretry.RetryAsync(ctx, fetch, xretry.Standard(), xretry.Handlers[string]{
//	    OnSuccess: func(v string) { ... },
//	    OnError:   func(err *xretry.ClassifiedError) { ... },
//	})
//	<-done
//
// # 错误分类
//
// 默认分类器可重试：网络错误、超时、5xx 服务端错误；不可重试：4xx 客户端错误及其他。
// 错误链中实现 Retryable() bool 的错误优先于默认判断（NewPermanentError / NewTemporaryError）。
// 结构化信息（HTTP 状态码、gRPC 状态）优先于错误文本匹配。
//
// # 并发
//
// 每次 Retry 调用相互独立，不共享可变状态。执行器不会中断正在运行的操作，
// 单次尝试的超时由操作自身负责；ctx 取消只阻止下一次尝试。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
